package s3

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"sitereport/internal/blob/core"
)

// fakeBucket answers the subset of the S3 REST API the store uses.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

type fakeObject struct {
	body        []byte
	contentType string
	meta        map[string]string
}

func respond(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: header}
}

func errorBody(code string) string {
	return "<?xml version=\"1.0\"?><Error><Code>" + code + "</Code><Message>" + code + "</Message></Error>"
}

func (f *fakeBucket) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		return f.list(req.URL.Query().Get("prefix")), nil
	}
	obj, exists := f.objects[key]
	switch req.Method {
	case http.MethodPut:
		if exists && req.Header.Get("If-None-Match") == "*" {
			return respond(http.StatusPreconditionFailed, errorBody("PreconditionFailed"), nil), nil
		}
		raw, _ := io.ReadAll(req.Body)
		if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") || req.Header.Get("X-Amz-Decoded-Content-Length") != "" {
			raw = decodeChunked(raw)
		}
		meta := map[string]string{}
		for name, values := range req.Header {
			if strings.HasPrefix(strings.ToLower(name), "x-amz-meta-") {
				meta[strings.ToLower(strings.TrimPrefix(strings.ToLower(name), "x-amz-meta-"))] = values[0]
			}
		}
		f.objects[key] = fakeObject{body: raw, contentType: req.Header.Get("Content-Type"), meta: meta}
		return respond(http.StatusOK, "", http.Header{"Etag": {`"etag-put"`}}), nil
	case http.MethodHead, http.MethodGet:
		if !exists {
			if req.Method == http.MethodHead {
				return respond(http.StatusNotFound, "", nil), nil
			}
			return respond(http.StatusNotFound, errorBody("NoSuchKey"), http.Header{"Content-Type": {"application/xml"}}), nil
		}
		header := http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
			"Etag":           {`"etag-` + key + `"`},
			"Last-Modified":  {time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat)},
		}
		for k, v := range obj.meta {
			header.Set("X-Amz-Meta-"+k, v)
		}
		body := ""
		if req.Method == http.MethodGet {
			body = string(obj.body)
		}
		resp := respond(http.StatusOK, body, header)
		resp.ContentLength = int64(len(obj.body))
		return resp, nil
	case http.MethodDelete:
		delete(f.objects, key)
		return respond(http.StatusNoContent, "", nil), nil
	}
	return respond(http.StatusNotImplemented, "", nil), nil
}

func (f *fakeBucket) list(prefix string) *http.Response {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
	for _, k := range keys {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>", k, len(f.objects[k].body))
	}
	b.WriteString("</ListBucketResult>")
	return respond(http.StatusOK, b.String(), http.Header{"Content-Type": {"application/xml"}})
}

// decodeChunked strips aws-chunked framing: <hex>[;ext]\r\n<data>\r\n ... 0\r\n<trailers>.
func decodeChunked(raw []byte) []byte {
	r := bufio.NewReader(bytes.NewReader(raw))
	var out []byte
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return raw
		}
		sizeField := strings.TrimSpace(strings.SplitN(line, ";", 2)[0])
		size, err := strconv.ParseInt(sizeField, 16, 64)
		if err != nil {
			return raw
		}
		if size == 0 {
			return out
		}
		chunk := make([]byte, size)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return raw
		}
		out = append(out, chunk...)
		_, _ = r.ReadString('\n')
	}
}

func newFakeStore(t *testing.T, prefix string) (*Store, *fakeBucket) {
	t.Helper()
	bucket := &fakeBucket{objects: map[string]fakeObject{}}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	client := awsS3.NewFromConfig(cfg, func(o *awsS3.Options) {
		o.HTTPClient = &http.Client{Transport: bucket}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://s3.test.local")
	})
	return newWithClient(client, "reports", prefix), bucket
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store, bucket := newFakeStore(t, "archive")

	info, err := store.Put(ctx, "sites/7/analysis-1.json", strings.NewReader(`{"ok":true}`), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"site": "7"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "sites/7/analysis-1.json" || info.ContentType != "application/json" || info.Size != 11 {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.Metadata["site"] != "7" {
		t.Fatalf("expected metadata round trip, got %+v", info.Metadata)
	}
	if _, ok := bucket.objects["archive/sites/7/analysis-1.json"]; !ok {
		t.Fatalf("expected prefixed object key, have %v", bucket.objects)
	}

	if _, err := store.Put(ctx, "sites/7/analysis-1.json", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	_, body, err := store.Get(ctx, "sites/7/analysis-1.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(body)
	_ = body.Close()
	if string(data) != `{"ok":true}` {
		t.Fatalf("unexpected body %q", data)
	}

	if _, err := store.Put(ctx, "sites/8/analysis-1.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	listed, err := store.List(ctx, "sites/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 || listed[0].Key != "sites/7/analysis-1.json" || listed[1].Key != "sites/8/analysis-1.json" {
		t.Fatalf("unexpected listing %+v", listed)
	}

	deleted, err := store.Delete(ctx, "sites/8/analysis-1.json")
	if err != nil || !deleted {
		t.Fatalf("expected delete, got %v %v", deleted, err)
	}
	deleted, err = store.Delete(ctx, "sites/8/analysis-1.json")
	if err != nil || deleted {
		t.Fatalf("expected missing delete to report false, got %v %v", deleted, err)
	}
}

func TestStoreMissingKeys(t *testing.T) {
	ctx := context.Background()
	store, _ := newFakeStore(t, "")
	if _, err := store.Head(ctx, "nope.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "nope.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on get, got %v", err)
	}
	if _, err := store.Put(ctx, "../x", strings.NewReader(""), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if store.Driver() != core.DriverS3 {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
}
