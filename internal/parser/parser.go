package parser

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pdf-chatbot/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

const defaultPageNumber = 1

// LoadDirectory reads every file in dir (no recursion) whose extension is listed in
// extensions and returns its pages in filename order. Files that cannot be parsed are
// logged and skipped; only an unreadable directory is an error.
func LoadDirectory(dir string, extensions []string) ([]models.Page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents folder %s: %w", dir, err)
	}

	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}

	var pages []models.Page
	for _, entry := range entries {
		if entry.IsDir() || !allowed[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		filePages, err := ParseFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("Skipping document")
			continue
		}
		log.Debug().Str("file", entry.Name()).Int("pages", len(filePages)).Msg("Parsed document")
		pages = append(pages, filePages...)
	}
	return pages, nil
}

// ParseFile extracts the non-blank pages of a single document. Every failure,
// including a panic inside a format reader, is reported as models.ErrIngestion.
func ParseFile(filePath string) (pages []models.Page, err error) {
	source := filepath.Base(filePath)
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("%w: %s: %v", models.ErrIngestion, source, r)
		}
	}()

	var texts map[int]string
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		texts, err = parsePDF(filePath)
	case ".docx":
		texts, err = parseDOCX(filePath)
	case ".pptx":
		texts, err = parsePPTX(filePath)
	case ".xlsx":
		texts, err = parseXLSX(filePath)
	case ".xlsm":
		texts, err = parseXLSM(filePath)
	case ".txt":
		texts, err = parseText(filePath)
	default:
		err = fmt.Errorf("unsupported file format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrIngestion, source, err)
	}

	numbers := make([]int, 0, len(texts))
	for n := range texts {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	for _, n := range numbers {
		if strings.TrimSpace(texts[n]) == "" {
			continue
		}
		text := strings.ToValidUTF8(texts[n], "")
		pages = append(pages, models.Page{Text: text, Source: source, PageNumber: n})
	}
	return pages, nil
}

func parsePDF(filePath string) (map[int]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Get file size for reader initialization
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	texts := make(map[int]string)
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		texts[i] = pageText
	}
	return texts, nil
}

func parseDOCX(filePath string) (map[int]string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	// DOCX has no page numbers
	var paragraphs []string
	for _, p := range strings.Split(extractTextFromXML(r.Editable().GetContent()), "\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return map[int]string{defaultPageNumber: strings.Join(paragraphs, "\n")}, nil
}

func parsePPTX(filePath string) (map[int]string, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	texts := make(map[int]string)
	for _, file := range f.File {
		var slideNum int
		if _, err := fmt.Sscanf(file.Name, "ppt/slides/slide%d.xml", &slideNum); err != nil {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		texts[slideNum] = extractTextFromXML(string(data))
	}
	return texts, nil
}

func parseXLSX(filePath string) (map[int]string, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	texts := make(map[int]string)
	for sheetNum, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		texts[sheetNum+1] = text.String()
	}
	return texts, nil
}

func parseXLSM(filePath string) (map[int]string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	texts := make(map[int]string)
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		texts[sheetNum+1] = text.String()
	}
	return texts, nil
}

func parseText(filePath string) (map[int]string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return map[int]string{defaultPageNumber: string(data)}, nil
}

// extractTextFromXML joins the text runs (<a:t>, <w:t>) of an Office XML part,
// one line per paragraph
func extractTextFromXML(xmlContent string) string {
	dec := xml.NewDecoder(strings.NewReader(xmlContent))
	var text strings.Builder
	inRun := false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inRun = t.Name.Local == "t"
		case xml.EndElement:
			inRun = false
			if t.Name.Local == "p" {
				text.WriteByte('\n')
			}
		case xml.CharData:
			if inRun {
				text.Write(t)
			}
		}
	}
	return strings.TrimRight(text.String(), "\n")
}
