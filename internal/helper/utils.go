package helper

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// chunkNamespace scopes the name-based UUIDs derived for chunks
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("pdf-chatbot/chunk"))

// ChunkID derives a stable id from the chunk's origin and position, so rebuilding
// the same corpus yields the same ids
func ChunkID(source string, page, seq int) string {
	name := source + "#" + strconv.Itoa(page) + "#" + strconv.Itoa(seq)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}

// PrettyPrint writes v as indented JSON
func PrettyPrint(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("Error pretty printing")
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// CreateFolder creates the folder and its parents if missing
func CreateFolder(path string) error {
	return os.MkdirAll(path, 0o755)
}

// SetupLogger configures the global zerolog logger. Logs go to w, never to stdout,
// so batch output stays machine readable.
func SetupLogger(level string, w io.Writer) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).With().Caller().Logger()
}
