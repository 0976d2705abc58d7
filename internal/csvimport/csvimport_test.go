package csvimport

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseLeadsCommaSeparated(t *testing.T) {
	in := "Nombre,Email,Renta,Proyecto,Telefono,Observacion\n" +
		"Ana,ana@example.com,1.500.000,Torre Norte,+56911111111,llamar tarde\n" +
		"Luis,luis@example.com,900000,Parque Sur,,\n"

	got, err := ParseLeads("leads.csv", strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, Record{
		Name:    "Ana",
		Email:   "ana@example.com",
		Income:  "1.500.000",
		Project: "Torre Norte",
		Phone:   "+56911111111",
		Notes:   "llamar tarde",
	}, got[0])
	assert.Equal(t, "", got[1].Phone)
}

func TestParseLeadsSemicolonWithBOM(t *testing.T) {
	in := "\xEF\xBB\xBFNOMBRE;EMAIL;RANGO_RENTA;NOM_PROYECTO;TELEFONO1;TELEFONO2\n" +
		"Ana;ana@example.com;\"1,5M\";Torre Norte;111;222\n"

	got, err := ParseLeads("leads.csv", strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "Ana", got[0].Name)
	assert.Equal(t, "1,5M", got[0].Income)
	assert.Equal(t, "Torre Norte", got[0].Project)
	// telefono2 is preferred over telefono1
	assert.Equal(t, "222", got[0].Phone)
}

func TestParseLeadsAppliesDefaults(t *testing.T) {
	in := "nombre,email,renta,proyecto\n,,,\nsolo nombre,,,\n"

	got, err := ParseLeads("leads.csv", strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "solo nombre", got[0].Name)
	assert.Equal(t, DefaultEmail, got[0].Email)
	assert.Equal(t, DefaultIncome, got[0].Income)
	assert.Equal(t, DefaultProject, got[0].Project)
}

func TestParseLeadsUnknownHeaderStillDefaults(t *testing.T) {
	got, err := ParseLeads("leads.csv", strings.NewReader("foo\nbar\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, DefaultName, got[0].Name)
}

func TestParseLeadsTruncates(t *testing.T) {
	long := strings.Repeat("ñ", 300)
	in := "nombre,email,renta,proyecto,telefono\n" +
		long + "," + long + "," + long + "," + long + "," + long + "\n"

	got, err := ParseLeads("leads.csv", strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, strings.Repeat("ñ", 255), got[0].Name)
	assert.Equal(t, strings.Repeat("ñ", 255), got[0].Email)
	assert.Equal(t, strings.Repeat("ñ", 50), got[0].Income)
	assert.Equal(t, strings.Repeat("ñ", 100), got[0].Project)
	assert.Equal(t, strings.Repeat("ñ", 50), got[0].Phone)
}

func TestParseLeadsFlags(t *testing.T) {
	in := "nombre,es_ia,es_caliente\nA,si,0\nB,,TRUE\n"

	got, err := ParseLeads("leads.csv", strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.True(t, got[0].IsAI)
	assert.False(t, got[0].IsHot)
	assert.False(t, got[1].IsAI)
	assert.True(t, got[1].IsHot)
}

func TestParseLeadsErrors(t *testing.T) {
	_, err := ParseLeads("leads.csv", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = ParseLeads("leads.csv", strings.NewReader("nombre,email\nAn\"a,a@example.com\n"))
	assert.Error(t, err)

	_, err = ParseLeads("leads.xlsx", strings.NewReader("not a workbook"))
	assert.Error(t, err)
}

func TestParseLeadsWorkbook(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]string{"Nombre", "Email", "Proyecto"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]string{"Ana", "ana@example.com", "Torre Norte"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	got, err := ParseLeads("Leads.XLSX", &buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ana", got[0].Name)
	assert.Equal(t, "Torre Norte", got[0].Project)
	assert.Equal(t, DefaultIncome, got[0].Income)
}

func TestRecordKey(t *testing.T) {
	a := Record{Email: "a@x", Phone: "1", Project: "P"}
	b := Record{Email: "a@x", Phone: "1", Project: "P", Name: "other"}
	c := Record{Email: "a@x", Phone: "", Project: "1P"}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ',', sniffDelimiter([]byte("a,b,c\n1;2")))
	assert.Equal(t, ';', sniffDelimiter([]byte("a;b;c\n")))
	assert.Equal(t, ';', sniffDelimiter([]byte("\"x,y\";b\n")))
	assert.Equal(t, ',', sniffDelimiter(nil))
}

func TestReadTableNormalizesHeader(t *testing.T) {
	tbl, err := ReadTable("users.csv", strings.NewReader(" Name , Manager Email \nAna,jefe@example.com\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "manager_email"}, tbl.Header)
	assert.Equal(t, 1, tbl.Column("missing", "manager_email"))
	assert.Equal(t, -1, tbl.Column("missing"))
}
