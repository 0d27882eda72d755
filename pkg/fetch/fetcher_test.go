package fetch

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

type entry struct {
	name     string
	body     string
	typeflag byte
	linkname string
}

func buildTar(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0644, Typeflag: e.typeflag, Linkname: e.linkname}
		switch e.typeflag {
		case tar.TypeDir:
			hdr.Mode = 0755
		case tar.TypeReg:
			hdr.Size = int64(len(e.body))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if e.typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func sourceTree() []entry {
	return []entry{
		{name: "postgresql-8.4.4/", typeflag: tar.TypeDir},
		{name: "postgresql-8.4.4/configure", body: "#!/bin/sh\n", typeflag: tar.TypeReg},
		{name: "postgresql-8.4.4/contrib/uuid-ossp/Makefile", body: "install:\n", typeflag: tar.TypeReg},
		{name: "postgresql-8.4.4/README.link", typeflag: tar.TypeSymlink, linkname: "configure"},
	}
}

func md5Sum(b []byte) string {
	s := md5.Sum(b)
	return "md5:" + hex.EncodeToString(s[:])
}

func sha256Sum(b []byte) string {
	s := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(s[:])
}

func newTestFetcher(t *testing.T) *Fetcher {
	return New(&Config{CachePath: t.TempDir()})
}

func TestVerify(t *testing.T) {
	f := newTestFetcher(t)
	path := filepath.Join(t.TempDir(), "postgresql-8.4.4.tar.bz2")
	content := []byte("not really a tarball")
	require.NoError(t, os.WriteFile(path, content, 0644))

	assert.NoError(t, f.Verify(path, md5Sum(content)))
	assert.NoError(t, f.Verify(path, sha256Sum(content)))

	err := f.Verify(path, md5Sum([]byte("something else")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHashMismatch))

	assert.Error(t, f.Verify(path, "crc32:deadbeef"))
}

func TestFetchDownloadsVerifiesAndCaches(t *testing.T) {
	archive := []byte("archive bytes")
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	url := srv.URL + "/source/v8.4.4/postgresql-8.4.4.tar.bz2"

	path, err := f.Fetch(context.Background(), url, md5Sum(archive))
	require.NoError(t, err)
	assert.Equal(t, "postgresql-8.4.4.tar.bz2", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, archive, data)

	_, err = f.Fetch(context.Background(), url, md5Sum(archive))
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "second fetch should use the cache")
}

func TestFetchRejectsMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tampered"))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	url := srv.URL + "/postgresql-8.4.4.tar.bz2"

	_, err := f.Fetch(context.Background(), url, md5Sum([]byte("original")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHashMismatch))

	dest, err := f.ArchivePath(url)
	require.NoError(t, err)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "a bad download must not enter the cache")
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newTestFetcher(t).Fetch(context.Background(), srv.URL+"/missing.tar.gz", md5Sum(nil))
	assert.Error(t, err)
}

func TestExtractGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(buildTar(t, sourceTree()))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	archive := filepath.Join(t.TempDir(), "postgresql-8.4.4.tar.gz")
	require.NoError(t, os.WriteFile(archive, buf.Bytes(), 0644))

	dest := t.TempDir()
	root, err := newTestFetcher(t).Extract(archive, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "postgresql-8.4.4"), root)

	assert.FileExists(t, filepath.Join(root, "configure"))
	assert.FileExists(t, filepath.Join(root, "contrib", "uuid-ossp", "Makefile"))
	link, err := os.Readlink(filepath.Join(root, "README.link"))
	require.NoError(t, err)
	assert.Equal(t, "configure", link)
}

func TestExtractXZ(t *testing.T) {
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = io.Copy(xw, bytes.NewReader(buildTar(t, sourceTree())))
	require.NoError(t, err)
	require.NoError(t, xw.Close())

	archive := filepath.Join(t.TempDir(), "postgresql-8.4.4.tar.xz")
	require.NoError(t, os.WriteFile(archive, buf.Bytes(), 0644))

	root, err := newTestFetcher(t).Extract(archive, t.TempDir())
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "configure"))
}

func TestExtractRejectsTraversal(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "evil.tar")
	require.NoError(t, os.WriteFile(archive, buildTar(t, []entry{
		{name: "../outside", body: "x", typeflag: tar.TypeReg},
	}), 0644))

	_, err := newTestFetcher(t).Extract(archive, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")
}

func TestExtractRejectsSymlinkOutside(t *testing.T) {
	outside := t.TempDir()
	for name, linkname := range map[string]string{
		"absolute": outside,
		"relative": "../../outside",
	} {
		t.Run(name, func(t *testing.T) {
			archive := filepath.Join(t.TempDir(), "evil.tar")
			require.NoError(t, os.WriteFile(archive, buildTar(t, []entry{
				{name: "pg/", typeflag: tar.TypeDir},
				{name: "pg/link", typeflag: tar.TypeSymlink, linkname: linkname},
				{name: "pg/link/evil", body: "pwned", typeflag: tar.TypeReg},
			}), 0644))

			_, err := newTestFetcher(t).Extract(archive, t.TempDir())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "escapes")
			assert.NoFileExists(t, filepath.Join(outside, "evil"))
		})
	}
}

func TestExtractRejectsWriteThroughSymlink(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "evil.tar")
	require.NoError(t, os.WriteFile(archive, buildTar(t, []entry{
		{name: "pg/", typeflag: tar.TypeDir},
		{name: "pg/self", typeflag: tar.TypeSymlink, linkname: "."},
		{name: "pg/self/configure", body: "#!/bin/sh\n", typeflag: tar.TypeReg},
	}), 0644))

	dest := t.TempDir()
	_, err := newTestFetcher(t).Extract(archive, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symlink")
	assert.NoFileExists(t, filepath.Join(dest, "pg", "configure"))
}

func TestExtractUnsupportedFormat(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "postgresql.zip")
	require.NoError(t, os.WriteFile(archive, []byte("PK"), 0644))

	_, err := newTestFetcher(t).Extract(archive, t.TempDir())
	assert.Error(t, err)
}
