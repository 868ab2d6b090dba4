package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clientdist "github.com/codz-dev/uploader/client/dist"
	"github.com/codz-dev/uploader/pkg/upload"
)

const testPage = `<!DOCTYPE html>
<html><head><meta name="csrf-token" content="test-token"></head>
<body>
<form id="post" action="/" method="post">
  <input name="title">
  <div class="file-uploader" id="cover" data-name="cover_image" data-single-mode="true" data-required="true" data-accepted-types="image/*"></div>
  <div class="file-uploader" id="attachments" data-name="attachments"></div>
</form>
</body></html>`

var pngBytes = []byte("\x89PNG\r\n\x1a\nnot really an image")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, config *ServerConfig, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	store, err := upload.NewDiskStore(t.TempDir(), 1<<20)
	require.NoError(t, err)

	if config == nil {
		config = DefaultServerConfig()
		config.SessionConfig.HeartbeatInterval = time.Hour
	}
	opts = append([]Option{
		WithPageSource(StaticPage([]byte(testPage))),
		WithLogger(discardLogger()),
	}, opts...)

	srv := New(config, store, opts...)
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		srv.Sessions().Shutdown()
		ts.Close()
	})
	return srv, ts
}

func loadPage(t *testing.T, ts *httptest.Server) (*goquery.Document, string) {
	t.Helper()
	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	id, ok := doc.Find("script[data-uploader-page]").Attr("data-uploader-page")
	require.True(t, ok, "page script missing")
	return doc, id
}

func dial(t *testing.T, ts *httptest.Server, pageID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + WebSocketPath + "?page=" + pageID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// attach loads a page and connects to it, consuming the initial renders.
func attach(t *testing.T, ts *httptest.Server) (*websocket.Conn, string) {
	t.Helper()
	_, id := loadPage(t, ts)
	conn := dial(t, ts, id)
	readUntil(t, conn, isRender("cover"))
	readUntil(t, conn, isRender("attachments"))
	return conn, id
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(Outbound) bool) Outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var f Outbound
		require.NoError(t, conn.ReadJSON(&f))
		if match(f) {
			return f
		}
	}
}

func isRender(widget string) func(Outbound) bool {
	return func(f Outbound) bool { return f.Type == FrameRender && f.Widget == widget }
}

func isType(typ string) func(Outbound) bool {
	return func(f Outbound) bool { return f.Type == typ }
}

func send(t *testing.T, conn *websocket.Conn, in Inbound) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(in))
}

func fragment(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func stage(t *testing.T, ts *httptest.Server, name, contentType string, data []byte) string {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+UploadPath, mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var staged upload.Staged
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&staged))
	require.NotEmpty(t, staged.TempID)
	return staged.TempID
}

func gone(srv *Server, tempID string) func() bool {
	return func() bool {
		_, err := srv.store.Stat(context.Background(), tempID)
		return errors.Is(err, upload.ErrNotFound)
	}
}

func TestPageMountsWidgets(t *testing.T) {
	srv, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)

	script := doc.Find("script[data-uploader-page]")
	require.Equal(t, 1, script.Length())
	src, _ := script.Attr("src")
	assert.Equal(t, ScriptPath, src)

	assert.Equal(t, 2, doc.Find("[data-uploader-widget]").Length())
	enctype, _ := doc.Find("form#post").Attr("enctype")
	assert.Equal(t, "multipart/form-data", enctype)

	id, _ := script.Attr("data-uploader-page")
	assert.NotNil(t, srv.Sessions().Get(id))
	assert.Equal(t, 1, srv.Sessions().Count())
}

func TestPageSourceMissing(t *testing.T) {
	_, ts := newTestServer(t, nil, WithPageSource(FilePage(filepath.Join(t.TempDir(), "missing.html"))))

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocketUnknownPage(t *testing.T) {
	_, ts := newTestServer(t, nil)

	conn := dial(t, ts, "nope")
	f := readUntil(t, conn, isType(FrameError))
	assert.Equal(t, "U052", f.Code)

	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestAttachRendersEveryWidget(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	_, id := loadPage(t, ts)

	conn := dial(t, ts, id)
	f := readUntil(t, conn, isRender("cover"))
	assert.Equal(t, 1, fragment(t, f.HTML).Find("#cover.file-uploader").Length())
	readUntil(t, conn, isRender("attachments"))

	assert.Eventually(t, func() bool { return srv.Sessions().Get(id).Connected() },
		time.Second, 10*time.Millisecond)
}

func TestReconnectResyncs(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	conn, id := attach(t, ts)
	require.NoError(t, conn.Close())

	again := dial(t, ts, id)
	readUntil(t, again, isRender("cover"))
	readUntil(t, again, isRender("attachments"))
	assert.NotNil(t, srv.Sessions().Get(id))
}

func TestFilesFrameAddsFile(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn, _ := attach(t, ts)

	tempID := stage(t, ts, "photo.png", "image/png", pngBytes)
	send(t, conn, Inbound{Type: FrameFiles, Widget: "attachments", Files: []FileRef{{TempID: tempID}}})

	f := readUntil(t, conn, isRender("attachments"))
	doc := fragment(t, f.HTML)
	require.Equal(t, 1, doc.Find(".uploader-carousel-item").Length())

	src, ok := doc.Find(".uploader-carousel-item img").Attr("src")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(src, PreviewPath+"/"))

	resp, err := http.Get(ts.URL + src)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, pngBytes, body)

	resp, err = http.Get(ts.URL + src)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRejectedBatchReleasesStagedFiles(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	conn, _ := attach(t, ts)

	tempID := stage(t, ts, "notes.pdf", "application/pdf", []byte("%PDF-1.4"))
	send(t, conn, Inbound{Type: FrameFiles, Widget: "cover", Files: []FileRef{{TempID: tempID}}})

	f := readUntil(t, conn, isRender("cover"))
	doc := fragment(t, f.HTML)
	assert.Equal(t, 1, doc.Find("#cover.uploader-error-state").Length())
	assert.Equal(t, 1, doc.Find(".uploader-error.show").Length())
	assert.Equal(t, 0, doc.Find(".single-preview").Length())

	assert.Eventually(t, gone(srv, tempID), time.Second, 10*time.Millisecond)
}

func TestSelectFrameRejectsOversizedFileBeforeStaging(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn, _ := attach(t, ts)

	send(t, conn, Inbound{
		Type:     FrameSelect,
		Widget:   "attachments",
		Batch:    "1",
		Drop:     true,
		Selected: []FileMeta{{Name: "holiday.mp4", Type: "video/mp4", Size: 150 << 20}},
	})

	f := readUntil(t, conn, func(f Outbound) bool { return f.Type == FrameStage || f.Type == FrameDiscard })
	assert.Equal(t, FrameDiscard, f.Type)
	assert.Equal(t, "1", f.Batch)

	f = readUntil(t, conn, isRender("attachments"))
	msg := fragment(t, f.HTML).Find(".uploader-error.show").Text()
	assert.Contains(t, msg, "File size 150.00MB exceeds the maximum allowed size of 5.0MB")
}

func TestSelectFrameAcceptedBatchIsStaged(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn, _ := attach(t, ts)

	send(t, conn, Inbound{
		Type:     FrameSelect,
		Widget:   "cover",
		Batch:    "7",
		Selected: []FileMeta{{Name: "cover.png", Type: "image/png", Size: int64(len(pngBytes))}},
	})
	f := readUntil(t, conn, func(f Outbound) bool { return f.Type == FrameStage || f.Type == FrameDiscard })
	assert.Equal(t, FrameStage, f.Type)
	assert.Equal(t, "cover", f.Widget)
	assert.Equal(t, "7", f.Batch)
}

func TestSelectFrameHonoursStagingCap(t *testing.T) {
	config := DefaultServerConfig()
	config.SessionConfig.HeartbeatInterval = time.Hour
	config.MaxUploadSize = 1 << 20
	_, ts := newTestServer(t, config)
	conn, _ := attach(t, ts)

	send(t, conn, Inbound{
		Type:     FrameSelect,
		Widget:   "attachments",
		Batch:    "1",
		Selected: []FileMeta{{Name: "scan.pdf", Type: "application/pdf", Size: 2 << 20}},
	})
	f := readUntil(t, conn, func(f Outbound) bool { return f.Type == FrameStage || f.Type == FrameDiscard })
	assert.Equal(t, FrameDiscard, f.Type)

	f = readUntil(t, conn, isRender("attachments"))
	msg := fragment(t, f.HTML).Find(".uploader-error.show").Text()
	assert.Contains(t, msg, "maximum allowed size of 1.0MB")
}

func TestSelectFrameUnknownWidget(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn, _ := attach(t, ts)

	send(t, conn, Inbound{Type: FrameSelect, Widget: "nope", Batch: "3",
		Selected: []FileMeta{{Name: "a.pdf", Type: "application/pdf", Size: 1}}})
	f := readUntil(t, conn, func(f Outbound) bool { return f.Type == FrameStage || f.Type == FrameDiscard })
	assert.Equal(t, FrameDiscard, f.Type)
	assert.Equal(t, "3", f.Batch)
}

func TestFilesFrameUnknownTempID(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn, _ := attach(t, ts)

	send(t, conn, Inbound{Type: FrameFiles, Widget: "attachments", Files: []FileRef{{TempID: "0123456789abcdef"}}})

	// U012 shows inside the widget only; a ping proves nothing else came.
	send(t, conn, Inbound{Type: FramePing, TS: 7})
	f := readUntil(t, conn, func(f Outbound) bool { return f.Type == FrameError || f.Type == FramePong })
	assert.Equal(t, FramePong, f.Type)
}

func TestClickRemovesPendingFile(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	conn, _ := attach(t, ts)

	tempID := stage(t, ts, "photo.png", "image/png", pngBytes)
	send(t, conn, Inbound{Type: FrameFiles, Widget: "attachments", Files: []FileRef{{TempID: tempID}}})
	f := readUntil(t, conn, isRender("attachments"))

	hid, ok := fragment(t, f.HTML).Find(".carousel-item-remove").Attr("data-hid")
	require.True(t, ok)

	send(t, conn, Inbound{Type: FrameClick, HID: hid})
	f = readUntil(t, conn, isRender("attachments"))
	assert.Equal(t, 0, fragment(t, f.HTML).Find(".uploader-carousel-item").Length())

	assert.Eventually(t, gone(srv, tempID), time.Second, 10*time.Millisecond)
}

func TestDragFrameTogglesState(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn, _ := attach(t, ts)

	send(t, conn, Inbound{Type: FrameDrag, Widget: "attachments", Over: true})
	f := readUntil(t, conn, isRender("attachments"))
	assert.Equal(t, 1, fragment(t, f.HTML).Find("#attachments.drag-over").Length())

	send(t, conn, Inbound{Type: FrameDrag, Widget: "attachments", Over: false})
	f = readUntil(t, conn, isRender("attachments"))
	assert.Equal(t, 0, fragment(t, f.HTML).Find("#attachments.drag-over").Length())
}

func TestSubmitBlockedByRequiredWidget(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn, _ := attach(t, ts)

	send(t, conn, Inbound{Type: FrameSubmit, Form: "post", Fields: map[string][]string{"title": {"Hello"}}})

	blocked := readUntil(t, conn, isType(FrameBlocked))
	assert.Equal(t, "post", blocked.Form)
	assert.Equal(t, []string{"cover"}, blocked.Offending)

	scroll := readUntil(t, conn, isType(FrameScroll))
	assert.Equal(t, "cover", scroll.Widget)

	f := readUntil(t, conn, isRender("cover"))
	assert.Equal(t, 1, fragment(t, f.HTML).Find("#cover.uploader-error-state").Length())

	body := scrapeMetrics(t, ts)
	assert.Contains(t, body, `uploader_submissions_total{outcome="blocked"} 1`)
}

func TestSubmitForwardsForm(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn, _ := attach(t, ts)

	tempID := stage(t, ts, "cover.png", "image/png", pngBytes)
	send(t, conn, Inbound{Type: FrameFiles, Widget: "cover", Files: []FileRef{{TempID: tempID}}})
	readUntil(t, conn, isRender("cover"))

	send(t, conn, Inbound{Type: FrameSubmit, Form: "post", Fields: map[string][]string{"title": {"Hello"}}})

	f := readUntil(t, conn, isType(FrameSubmitted))
	assert.Equal(t, "post", f.Form)
	assert.Equal(t, http.StatusSeeOther, f.Status)
	assert.True(t, strings.HasSuffix(f.Location, "/?received=1"), f.Location)
	assert.Empty(t, f.HTML)
}

func TestSubmitUnknownForm(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn, _ := attach(t, ts)

	send(t, conn, Inbound{Type: FrameSubmit, Form: "elsewhere"})
	send(t, conn, Inbound{Type: FramePing, TS: 1})

	f := readUntil(t, conn, func(f Outbound) bool {
		return f.Type == FrameBlocked || f.Type == FrameSubmitted || f.Type == FramePong
	})
	assert.Equal(t, FramePong, f.Type)
}

func TestPingPong(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn, _ := attach(t, ts)

	send(t, conn, Inbound{Type: FramePing, TS: 42})
	f := readUntil(t, conn, isType(FramePong))
	assert.Equal(t, int64(42), f.TS)
}

func TestMalformedFrames(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn, _ := attach(t, ts)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	f := readUntil(t, conn, isType(FrameError))
	assert.Equal(t, "U050", f.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"widget":"cover"}`)))
	f = readUntil(t, conn, isType(FrameError))
	assert.Equal(t, "U050", f.Code)

	send(t, conn, Inbound{Type: "teleport"})
	f = readUntil(t, conn, isType(FrameError))
	assert.Equal(t, "U050", f.Code)
}

func TestRateLimitedFrames(t *testing.T) {
	config := DefaultServerConfig()
	config.SessionConfig.HeartbeatInterval = time.Hour
	config.SessionConfig.EventRate = 0.001
	config.SessionConfig.EventBurst = 1
	_, ts := newTestServer(t, config)
	conn, _ := attach(t, ts)

	for i := 0; i < 3; i++ {
		send(t, conn, Inbound{Type: FramePing, TS: int64(i)})
	}
	f := readUntil(t, conn, isType(FrameError))
	assert.Equal(t, "U051", f.Code)
}

func TestThinClientCaching(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + ScriptPath)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")
	assert.Equal(t, "public, max-age=0, must-revalidate", resp.Header.Get("Cache-Control"))
	assert.Equal(t, clientdist.UploaderJS, body)

	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	req, err := http.NewRequest(http.MethodGet, ts.URL+ScriptPath, nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", `W/"other", `+etag)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
}

func TestThinClientDevMode(t *testing.T) {
	config := DefaultServerConfig()
	config.DevMode = true
	_, ts := newTestServer(t, config)

	resp, err := http.Head(ts.URL + ScriptPath)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}

func scrapeMetrics(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, err := http.Get(ts.URL + MetricsPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil)
	loadPage(t, ts)

	body := scrapeMetrics(t, ts)
	assert.Contains(t, body, "uploader_http_requests_total")
	assert.Contains(t, body, "uploader_active_sessions")
}

func TestDemoReceiverRedirects(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "Hello"))
	for _, name := range []string{"a.txt", "b.txt"} {
		part, err := mw.CreateFormFile("attachments[]", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Post(ts.URL+"/", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/?received=2", resp.Header.Get("Location"))
}

func TestDefaultPageIsDemo(t *testing.T) {
	store, err := upload.NewDiskStore(t.TempDir(), 1<<20)
	require.NoError(t, err)
	srv := New(nil, store, WithLogger(discardLogger()))
	t.Cleanup(srv.Sessions().Shutdown)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("#cover[data-uploader-widget]").Length())
	assert.Equal(t, 1, doc.Find("#attachments[data-uploader-widget]").Length())
}
