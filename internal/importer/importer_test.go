package importer

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadRaw_concatenatedObjects(t *testing.T) {
	in := "{\"pos\": \"a\"}\n{\"pos\": \"b\"}{\"pos\": \"c\"}\n"
	docs, err := ReadRaw(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "c", docs[2]["pos"])
}

func TestReadRaw_array(t *testing.T) {
	docs, err := ReadRaw(strings.NewReader("  [{\"pos\": \"a\"}, {\"sal\": 30000}]"))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	s, ok := stringify(docs[1]["sal"])
	assert.True(t, ok)
	assert.Equal(t, "30000", s)
}

func TestReadRaw_emptyAndInvalid(t *testing.T) {
	docs, err := ReadRaw(strings.NewReader(" \n "))
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = ReadRaw(strings.NewReader(`{"pos": `))
	assert.Error(t, err)

	_, err = ReadRaw(strings.NewReader(`[{"pos": 1}`))
	assert.Error(t, err)
}

func TestRestructure(t *testing.T) {
	raw, err := ReadRaw(strings.NewReader(`{"id": 42, "pdate": "12/05/2562", "pos": "Engineer", "pos2": "วิศวกร",
		"desc": "Build things", "req": "BSc", "sal": 30000, "sex": null, "unknown": "x"}`))
	require.NoError(t, err)

	postings := Restructure(raw)
	require.Len(t, postings, 1)
	p := postings[0]
	assert.Equal(t, "42", p.ID)
	assert.Equal(t, "12-5-2019", p.Date)
	assert.Equal(t, `Engineer \\วิศวกร \\`, p.Title)
	assert.Equal(t, `Build things \\BSc \\`, p.Desc)
	assert.Equal(t, `30000 \\`, p.Salary)
	assert.Empty(t, p.Gender, "null values are skipped")
	assert.Empty(t, p.Company)
	assert.Empty(t, p.Label)
}

func TestRestructure_copiesLabel(t *testing.T) {
	postings := Restructure([]map[string]any{{"pos": "Cook", "label": "kitchen"}})
	require.Len(t, postings, 1)
	assert.Equal(t, "kitchen", postings[0].Label)
	assert.Equal(t, `Cook \\`, postings[0].Title)
}

func TestRestructure_generatesIDAndUnknownDate(t *testing.T) {
	postings := Restructure([]map[string]any{{"pos": "Driver"}, {"pos": "Cook", "id": ""}})
	require.Len(t, postings, 2)
	for _, p := range postings {
		_, err := uuid.Parse(p.ID)
		assert.NoError(t, err)
		assert.Equal(t, UnknownDate, p.Date)
	}
	assert.NotEqual(t, postings[0].ID, postings[1].ID)
}

func TestStringify(t *testing.T) {
	s, ok := stringify([]any{"a", nil, true, 1.5})
	assert.True(t, ok)
	assert.Equal(t, "a true 1.5", s)

	_, ok = stringify(nil)
	assert.False(t, ok)
}

func TestFields(t *testing.T) {
	assert.Equal(t, []string{"age", "amount", "benefits", "company", "date", "desc",
		"experience", "gender", "location", "qualification", "salary", "title"}, Fields())
}

func TestFromDocument(t *testing.T) {
	doc := FromDocument("/tmp/jobs/Data Engineer.pdf", "Design pipelines")
	assert.Equal(t, map[string]any{"pos": "Data Engineer", "desc": "Design pipelines"}, doc)
}

func writeWorkbook(t *testing.T, path string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "pos")
	f.SetCellValue("Sheet1", "B1", "desc")
	f.SetCellValue("Sheet1", "C1", "pdate")
	f.SetCellValue("Sheet1", "A2", "Accountant")
	f.SetCellValue("Sheet1", "B2", "Close the books")
	f.SetCellValue("Sheet1", "C2", "2019-05-12")
	f.SetCellValue("Sheet1", "A4", "Driver")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if path != "" {
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	}
	return buf.Bytes()
}

func TestReadExcel(t *testing.T) {
	docs, err := ReadExcel(bytes.NewReader(writeWorkbook(t, "")))
	require.NoError(t, err)
	require.Len(t, docs, 2, "the empty third row is skipped")
	assert.Equal(t, map[string]any{"pos": "Accountant", "desc": "Close the books", "pdate": "2019-05-12"}, docs[0])
	assert.Equal(t, map[string]any{"pos": "Driver"}, docs[1])
}

func TestReadExcel_invalid(t *testing.T) {
	_, err := ReadExcel(strings.NewReader("not a workbook"))
	assert.Error(t, err)
}

func minimalDocx(text string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document><w:body><w:p w:rsidR="00A1"><w:r><w:t>` + text +
		`</w:t></w:r><w:r><w:t xml:space="preserve"> </w:t></w:r><w:r><w:t>Bangkok</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

func TestReadDOCX(t *testing.T) {
	got, err := ReadDOCX(minimalDocx("Sales manager"))
	require.NoError(t, err)
	assert.Equal(t, "Sales manager Bangkok", got)

	_, err = ReadDOCX([]byte("plain text"))
	assert.Error(t, err)
}

func TestReadDOCX_contentTypesOverride(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	ct, _ := w.Create(contentTypesPath)
	_, _ = ct.Write([]byte(`<Types><Override ContentType="` + docxMainContentType + `" PartName="/word/document2.xml"/></Types>`))
	fw, _ := w.Create("word/document2.xml")
	_, _ = fw.Write([]byte(`<w:document><w:t>Moved body</w:t></w:document>`))
	_ = w.Close()

	got, err := ReadDOCX(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Moved body", got)
}

func TestReadPDF_invalid(t *testing.T) {
	_, err := ReadPDF([]byte("not a pdf"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "postings.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"pos": "Cook"}`+"\n"+`{"pos": "Chef"}`), 0600))
	postings, err := LoadFile(jsonPath)
	require.NoError(t, err)
	require.Len(t, postings, 2)
	assert.Equal(t, `Chef \\`, postings[1].Title)

	xlsxPath := filepath.Join(dir, "postings.xlsx")
	writeWorkbook(t, xlsxPath)
	postings, err = LoadFile(xlsxPath)
	require.NoError(t, err)
	require.Len(t, postings, 2)
	assert.Equal(t, "12-5-2019", postings[0].Date)

	txtPath := filepath.Join(dir, "Data Engineer.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("Build pipelines"), 0600))
	postings, err = LoadFile(txtPath)
	require.NoError(t, err)
	require.Len(t, postings, 1)
	assert.Equal(t, `Data Engineer \\`, postings[0].Title)
	assert.Equal(t, `Build pipelines \\`, postings[0].Desc)

	docxPath := filepath.Join(dir, "offer.docx")
	require.NoError(t, os.WriteFile(docxPath, minimalDocx("Clerk"), 0600))
	postings, err = LoadFile(docxPath)
	require.NoError(t, err)
	assert.Equal(t, `Clerk Bangkok \\`, postings[0].Desc)

	_, err = LoadFile(filepath.Join(dir, "postings.csv"))
	assert.Error(t, err)

	csvPath := filepath.Join(dir, "exists.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("a,b"), 0600))
	_, err = LoadFile(csvPath)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadPlain(t *testing.T) {
	assert.Equal(t, "hello", readPlain([]byte("hello")))
	assert.Equal(t, "a�b", readPlain([]byte{'a', 0xff, 'b'}))
}
