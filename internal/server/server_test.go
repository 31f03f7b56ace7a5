package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/codalotl/blockdiff/internal/docdiff"
	"github.com/codalotl/blockdiff/internal/document"
	"github.com/codalotl/blockdiff/internal/session"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	rootID  = document.FormatID(0)
	childID = document.FormatID(1)
)

func newTestServer(t *testing.T, opts Options) (*session.Session, *httptest.Server) {
	t.Helper()
	doc, err := document.New("").InsertBlock("", 0, document.Block{ID: rootID, ContentType: document.ContentHeading, Content: "Title"})
	require.NoError(t, err)
	doc, err = doc.InsertBlock(rootID, 0, document.Block{ID: childID, Content: "Hello"})
	require.NoError(t, err)
	sess, err := session.New(doc, session.Options{MaxEntries: 10})
	require.NoError(t, err)

	srv := New(sess, opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return sess, ts
}

func do(t *testing.T, method, url, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, b
}

func TestDocumentAndHistory(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	code, body := do(t, http.MethodGet, ts.URL+"/api/document", "")
	require.Equal(t, http.StatusOK, code)
	var doc document.Document
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "Hello", doc.Blocks[childID].Content)

	code, body = do(t, http.MethodGet, ts.URL+"/api/history", "")
	require.Equal(t, http.StatusOK, code)
	var h historyResponse
	require.NoError(t, json.Unmarshal(body, &h))
	assert.Equal(t, -1, h.CurrentIndex)
	assert.False(t, h.CanUndo)
	assert.False(t, h.CanRedo)
}

func TestEditUndoRedo(t *testing.T) {
	var saves atomic.Int32
	sess, ts := newTestServer(t, Options{OnChange: func(*session.Session) error {
		saves.Add(1)
		return nil
	}})

	code, body := do(t, http.MethodPut, ts.URL+"/api/blocks/"+string(childID)+"/content", `{"content":"Hello World"}`)
	require.Equal(t, http.StatusOK, code, string(body))
	var er entryResponse
	require.NoError(t, json.Unmarshal(body, &er))
	assert.True(t, er.OK)
	assert.Equal(t, "Hello World", sess.Document().Blocks[childID].Content)

	code, body = do(t, http.MethodPost, ts.URL+"/api/history/undo", "")
	require.Equal(t, http.StatusOK, code)
	var mr moveResponse
	require.NoError(t, json.Unmarshal(body, &mr))
	assert.Equal(t, -1, mr.Index)
	assert.True(t, mr.History.CanRedo)
	assert.Equal(t, "Hello", sess.Document().Blocks[childID].Content)

	code, body = do(t, http.MethodPost, ts.URL+"/api/history/undo", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, string(body), `"ok":false`)

	code, _ = do(t, http.MethodPost, ts.URL+"/api/history/redo", "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, http.MethodPost, ts.URL+"/api/history/redo", "")
	assert.Equal(t, http.StatusConflict, code)

	assert.Equal(t, int32(3), saves.Load())
}

func TestPutContent_Errors(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	code, _ := do(t, http.MethodPut, ts.URL+"/api/blocks/missing/content", `{"content":"x"}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, http.MethodPut, ts.URL+"/api/blocks/"+string(childID)+"/content", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, http.MethodPut, ts.URL+"/api/blocks/"+string(childID)+"/content", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, http.MethodGet, ts.URL+"/api/blocks/"+string(childID)+"/content", "")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestOnChangeFailure(t *testing.T) {
	sess, ts := newTestServer(t, Options{OnChange: func(*session.Session) error { return errors.New("disk full") }})

	code, body := do(t, http.MethodPut, ts.URL+"/api/blocks/"+string(childID)+"/content", `{"content":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Contains(t, string(body), "disk full")
	assert.Equal(t, "x", sess.Document().Blocks[childID].Content)
}

func TestDiff(t *testing.T) {
	sess, ts := newTestServer(t, Options{})
	_, err := sess.Apply("", session.SetContent(childID, "Hello World"))
	require.NoError(t, err)

	code, body := do(t, http.MethodGet, ts.URL+"/api/diff", "")
	require.Equal(t, http.StatusOK, code, string(body))
	var d docdiff.DocumentDiff
	require.NoError(t, json.Unmarshal(body, &d))
	assert.Equal(t, 1, d.Summary.Modified)
	assert.Equal(t, "pristine", d.FromSnapshotID)
	assert.Equal(t, "Hello World", d.Blocks[childID].ContentDiff.NewText())

	code, body = do(t, http.MethodGet, ts.URL+"/api/diff?from=0&to=0&format=text", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "No differences found")

	code, _ = do(t, http.MethodGet, ts.URL+"/api/diff?from=x", "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = do(t, http.MethodGet, ts.URL+"/api/diff?to=7", "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = do(t, http.MethodGet, ts.URL+"/api/diff?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCORSPreflight(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/history/undo", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebSocketEvents(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello stateMessage
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "state", hello.Kind)
	assert.Equal(t, -1, hello.State.CurrentIndex)

	code, _ := do(t, http.MethodPut, ts.URL+"/api/blocks/"+string(childID)+"/content", `{"content":"Hi"}`)
	require.Equal(t, http.StatusOK, code)

	var ev session.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, session.EventRecord, ev.Kind)
	assert.Equal(t, 0, ev.State.CurrentIndex)

	code, _ = do(t, http.MethodPost, ts.URL+"/api/history/undo", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, session.EventUndo, ev.Kind)
	assert.Equal(t, -1, ev.State.CurrentIndex)
}
