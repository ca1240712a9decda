package h1b

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/h1b-counting/internal/fetcher"
	"github.com/sells-group/h1b-counting/internal/model"
)

func drainSource(t *testing.T, s *Source) [][]string {
	t.Helper()
	var rows [][]string
	for row := range s.Rows {
		rows = append(rows, row)
	}
	require.NoError(t, s.Err())
	return rows
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://www.dol.gov/h1b.csv"))
	assert.True(t, IsRemote("http://localhost:8080/x.zip"))
	assert.False(t, IsRemote("/data/h1b.csv"))
	assert.False(t, IsRemote("input/h1b_input.csv"))
	assert.False(t, IsRemote("ftp://host/file.csv"))
	assert.False(t, IsRemote("https://"))
}

func TestRemoteName(t *testing.T) {
	assert.Equal(t, "H1B_FY2016.zip", remoteName("https://example.com/files/H1B_FY2016.zip?x=1"))
	assert.Equal(t, "input", remoteName("https://example.com/"))
	assert.Equal(t, "input", remoteName("https://example.com"))
}

func TestOpenSource_CSV(t *testing.T) {
	path := writeInput(t, t.TempDir(), "in.csv", "A;B", "1;2")

	s, err := OpenSource(context.Background(), path, SourceOptions{})
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	assert.Equal(t, [][]string{{"A", "B"}, {"1", "2"}}, drainSource(t, s))
}

func TestOpenSource_CloseBeforeDrain(t *testing.T) {
	dir := t.TempDir()
	lines := []string{"A;B"}
	for range 500 {
		lines = append(lines, "1;2")
	}
	path := writeInput(t, dir, "in.csv", lines...)

	s, err := OpenSource(context.Background(), path, SourceOptions{})
	require.NoError(t, err)

	<-s.Rows
	assert.NoError(t, s.Close())
}

func TestOpenSource_MissingFile(t *testing.T) {
	_, err := OpenSource(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), SourceOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source: open")
}

func TestOpenSource_ZIP(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "in.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("H1B_FY2014.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte("STATUS;LCA_CASE_SOC_NAME;LCA_CASE_WORKLOC1_STATE\nCERTIFIED;Engineer;CA\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	s, err := OpenSource(context.Background(), zipPath, SourceOptions{})
	require.NoError(t, err)
	tmp := s.tmpDir
	assert.DirExists(t, tmp)

	rows := drainSource(t, s)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"CERTIFIED", "Engineer", "CA"}, rows[1])

	require.NoError(t, s.Close())
	assert.NoDirExists(t, tmp)
}

func TestOpenSource_XLSX(t *testing.T) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Data")
	require.NoError(t, err)
	for _, r := range [][]string{
		{"CASE_STATUS", "SOC_NAME", "WORKSITE_STATE"},
		{"CERTIFIED", "Nurse", "NY"},
	} {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "in.xlsx")
	require.NoError(t, file.Save(path))

	s, err := OpenSource(context.Background(), path, SourceOptions{Sheet: "Data"})
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	rows := drainSource(t, s)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"CERTIFIED", "Nurse", "NY"}, rows[1])
}

func TestOpenSource_RemoteWithoutFetcher(t *testing.T) {
	_, err := OpenSource(context.Background(), "https://example.com/in.csv", SourceOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fetcher configured")
}

func TestOpenSource_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("CASE_STATUS;SOC_NAME;WORKSITE_STATE\nCERTIFIED;Engineer;WA\n"))
	}))
	defer srv.Close()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1})
	s, err := OpenSource(context.Background(), srv.URL+"/h1b.csv", SourceOptions{Fetcher: f})
	require.NoError(t, err)
	tmp := s.tmpDir

	rows := drainSource(t, s)
	require.Len(t, rows, 2)
	assert.Equal(t, "WA", rows[1][2])

	require.NoError(t, s.Close())
	assert.NoDirExists(t, tmp)
}

func TestOpenSource_RemoteNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1})
	_, err := OpenSource(context.Background(), srv.URL+"/h1b.csv", SourceOptions{Fetcher: f})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source: download")
}

func TestRun_RemoteInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("CASE_STATUS;SOC_NAME;WORKSITE_STATE\nCERTIFIED;Engineer;WA\nCERTIFIED;Nurse;WA\n"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	job := model.Job{
		Input:       srv.URL + "/h1b.csv",
		Occupations: filepath.Join(dir, "occ.txt"),
		States:      filepath.Join(dir, "st.txt"),
	}

	opts := Options{Source: SourceOptions{Fetcher: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1})}}
	res, err := Run(context.Background(), job, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, StatesHeader+"\nWA;2;100.0%\n", readOutput(t, job.States))
}
