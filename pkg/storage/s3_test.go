package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nemanja-m/linecount/pkg/core"
)

// fakeS3 is an in-memory bucket server covering the calls S3Store makes:
// HEAD bucket, ListObjectsV2, GET and PUT object.
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]map[string][]byte
}

type fakeListResult struct {
	XMLName     xml.Name        `xml:"ListBucketResult"`
	Name        string          `xml:"Name"`
	Prefix      string          `xml:"Prefix"`
	KeyCount    int             `xml:"KeyCount"`
	MaxKeys     int             `xml:"MaxKeys"`
	IsTruncated bool            `xml:"IsTruncated"`
	Contents    []fakeListEntry `xml:"Contents"`
}

type fakeListEntry struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
	Size         int    `xml:"Size"`
}

var fakeModTime = time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)

func newFakeS3(t *testing.T, buckets ...string) (*fakeS3, *httptest.Server) {
	t.Helper()
	f := &fakeS3{buckets: make(map[string]map[string][]byte)}
	for _, b := range buckets {
		f.buckets[b] = make(map[string][]byte)
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeS3) put(bucket, key, data string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets[bucket][key] = []byte(data)
}

func (f *fakeS3) get(bucket, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.buckets[bucket][key]
	return data, ok
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")

	f.mu.Lock()
	objects, ok := f.buckets[bucket]
	f.mu.Unlock()
	if !ok {
		writeS3Error(w, r, http.StatusNotFound, "NoSuchBucket")
		return
	}

	switch {
	case key == "" && r.Method == http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case key == "" && r.Method == http.MethodGet:
		f.list(w, r, bucket, objects)
	case r.Method == http.MethodGet:
		data, ok := f.get(bucket, key)
		if !ok {
			writeS3Error(w, r, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Last-Modified", fakeModTime.Format(http.TimeFormat))
		w.Header().Set("ETag", `"etag"`)
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	case r.Method == http.MethodPut:
		data, err := readPutBody(r)
		if err != nil {
			writeS3Error(w, r, http.StatusBadRequest, "IncompleteBody")
			return
		}
		f.put(bucket, key, string(data))
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	default:
		writeS3Error(w, r, http.StatusNotImplemented, "NotImplemented")
	}
}

func (f *fakeS3) list(w http.ResponseWriter, r *http.Request, bucket string, objects map[string][]byte) {
	query := r.URL.Query()
	prefix := query.Get("prefix")
	maxKeys := 1000
	if v := query.Get("max-keys"); v != "" {
		maxKeys, _ = strconv.Atoi(v)
	}

	f.mu.Lock()
	keys := make([]string, 0, len(objects))
	for k := range objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	f.mu.Unlock()
	slices.Sort(keys)
	if len(keys) > maxKeys {
		keys = keys[:maxKeys]
	}

	result := fakeListResult{Name: bucket, Prefix: prefix, KeyCount: len(keys), MaxKeys: maxKeys}
	for _, k := range keys {
		data, _ := f.get(bucket, k)
		result.Contents = append(result.Contents, fakeListEntry{
			Key:          k,
			LastModified: fakeModTime.Format(time.RFC3339),
			ETag:         `"etag"`,
			Size:         len(data),
		})
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_ = xml.NewEncoder(w).Encode(result)
}

func writeS3Error(w http.ResponseWriter, r *http.Request, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = io.WriteString(w, "<Error><Code>"+code+"</Code><Message>"+code+"</Message></Error>")
	}
}

// readPutBody decodes aws-chunked uploads, which minio-go sends over plain
// HTTP, and returns other bodies as is.
func readPutBody(r *http.Request) ([]byte, error) {
	if !strings.HasPrefix(r.Header.Get("X-Amz-Content-Sha256"), "STREAMING-") {
		return io.ReadAll(r.Body)
	}
	br := bufio.NewReader(r.Body)
	var out bytes.Buffer
	for {
		header, err := br.ReadString('\n')
		if err != nil {
			return nil, err
		}
		sizeHex, _, _ := strings.Cut(strings.TrimSpace(header), ";")
		size, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil {
			return nil, err
		}
		if size == 0 {
			return out.Bytes(), nil
		}
		if _, err := io.CopyN(&out, br, size); err != nil {
			return nil, err
		}
		if _, err := br.Discard(2); err != nil {
			return nil, err
		}
	}
}

func newTestS3Store(t *testing.T, srv *httptest.Server, raw string) *S3Store {
	t.Helper()
	loc, err := ParseLocation(raw)
	require.NoError(t, err)
	store, err := NewS3Store(loc, S3Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "access",
		SecretKey: "secret",
	})
	require.NoError(t, err)
	return store
}

func TestS3Store_List(t *testing.T) {
	fake, srv := newFakeS3(t, "code")
	fake.put("code", "repo/a.py", "1")
	fake.put("code", "repo/sub/b.py", "1\n2")
	fake.put("code", "repo/sub/", "")
	fake.put("code", "repo/sub/c.txt", "x")
	fake.put("code", "other/d.py", "x")

	names, err := newTestS3Store(t, srv, "s3://code/repo").List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"a.py", "sub/b.py", "sub/c.txt"}, names)

	names, err = newTestS3Store(t, srv, "s3://code").List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"other/d.py", "repo/a.py", "repo/sub/b.py", "repo/sub/c.txt"}, names)
}

func TestS3Store_ListPattern(t *testing.T) {
	fake, srv := newFakeS3(t, "code")
	fake.put("code", "repo/a.py", "1")
	fake.put("code", "repo/sub/b.py", "1\n2")
	fake.put("code", "repo/sub/c.txt", "x")
	fake.put("code", "top.py", "x")

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"recursive extension", "gs://code/repo/**/*.py", []string{"a.py", "sub/b.py"}},
		{"top level only", "gs://code/repo/*.py", []string{"a.py"}},
		{"whole bucket", "gs://code/**/*.txt", []string{"repo/sub/c.txt"}},
		{"no matches", "gs://code/repo/*.go", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestS3Store(t, srv, tt.raw)
			names, err := store.List(context.Background())
			require.NoError(t, err)
			require.Equal(t, tt.want, names)

			for _, name := range names {
				_, err := store.Read(context.Background(), name)
				require.NoError(t, err)
			}
		})
	}
}

func TestS3Store_InvalidPattern(t *testing.T) {
	loc, err := ParseLocation("gs://code/repo/[a")
	require.NoError(t, err)
	_, err = NewS3Store(loc, S3Config{AccessKey: "access", SecretKey: "secret"})
	require.ErrorIs(t, err, core.ErrUsage)
}

func TestS3Store_ReadWrite(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeS3(t, "out")
	store := newTestS3Store(t, srv, "s3://out/results/run1")

	require.NoError(t, store.Write(ctx, "part-00000", []byte(`"x.py": 8`+"\n")))
	require.NoError(t, store.Write(ctx, "_SUCCESS", nil))

	data, ok := fake.get("out", "results/run1/part-00000")
	require.True(t, ok)
	require.Equal(t, `"x.py": 8`+"\n", string(data))
	data, ok = fake.get("out", "results/run1/_SUCCESS")
	require.True(t, ok)
	require.Empty(t, data)

	data, err := store.Read(ctx, "part-00000")
	require.NoError(t, err)
	require.Equal(t, `"x.py": 8`+"\n", string(data))

	_, err = store.Read(ctx, "missing")
	require.ErrorIs(t, err, core.ErrIO)
}

func TestS3Store_Empty(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeS3(t, "out")

	empty, err := newTestS3Store(t, srv, "s3://out/results").Empty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	fake.put("out", "results/run1/part-00000", `"x.py": 8`)
	fake.put("out", "results/run1/part-00001", `"y.py": 1`)

	empty, err = newTestS3Store(t, srv, "s3://out/results").Empty(ctx)
	require.NoError(t, err)
	require.False(t, empty)

	empty, err = newTestS3Store(t, srv, "s3://out/elsewhere").Empty(ctx)
	require.NoError(t, err)
	require.True(t, empty)
}

func TestS3Store_MissingBucket(t *testing.T) {
	ctx := context.Background()
	_, srv := newFakeS3(t, "out")
	store := newTestS3Store(t, srv, "s3://absent/results")

	_, err := store.Empty(ctx)
	require.ErrorIs(t, err, core.ErrIO)

	_, err = store.List(ctx)
	require.ErrorIs(t, err, core.ErrIO)
}

func TestS3Store_Config(t *testing.T) {
	loc, err := ParseLocation("gs://bucket/prefix")
	require.NoError(t, err)

	_, err = NewS3Store(loc, S3Config{})
	require.ErrorIs(t, err, core.ErrConfiguration)

	_, err = NewS3Store(Location{Scheme: SchemeS3}, S3Config{AccessKey: "a", SecretKey: "b"})
	require.ErrorIs(t, err, core.ErrConfiguration)
}

func TestS3Store_Path(t *testing.T) {
	_, srv := newFakeS3(t, "code")
	require.Equal(t, "gs://code/repo/sub/b.py", newTestS3Store(t, srv, "gs://code/repo").Path("sub/b.py"))
	require.Equal(t, "gs://code/repo/sub/b.py", newTestS3Store(t, srv, "gs://code/repo/**/*.py").Path("sub/b.py"))
}
