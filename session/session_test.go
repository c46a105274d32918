package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-graphdb/neobolt/bolt"
)

func TestModeString(t *testing.T) {
	assert.Equal(t, "r", modeString(bolt.AccessModeRead))
	assert.Equal(t, "w", modeString(bolt.AccessModeWrite))
}

func TestRunExtrasCarriesDatabaseBookmarksAndTxConfig(t *testing.T) {
	s := &Session{database: "neo4j", mode: bolt.AccessModeWrite, bookmarks: []string{"bm-1"}}

	extras := s.runExtras(txConfig{timeoutMillis: 5000, metadata: map[string]interface{}{"app": "test"}})
	assert.Equal(t, "w", extras["mode"])
	assert.Equal(t, "neo4j", extras["db"])
	assert.Equal(t, []string{"bm-1"}, extras["bookmarks"])
	assert.Equal(t, int64(5000), extras["tx_timeout"])
	assert.Equal(t, map[string]interface{}{"app": "test"}, extras["tx_metadata"])
}

func TestRunExtrasOmitsEmptyFields(t *testing.T) {
	s := &Session{mode: bolt.AccessModeRead}
	extras := s.runExtras(txConfig{})
	assert.Equal(t, "r", extras["mode"])
	_, hasDB := extras["db"]
	assert.False(t, hasDB)
	_, hasBookmarks := extras["bookmarks"]
	assert.False(t, hasBookmarks)
}

func TestCaptureBookmarkIgnoresEmpty(t *testing.T) {
	s := &Session{bookmarks: []string{"bm-1"}}
	s.captureBookmark("")
	assert.Equal(t, []string{"bm-1"}, s.LastBookmarks())

	s.captureBookmark("bm-2")
	assert.Equal(t, []string{"bm-2"}, s.LastBookmarks())
}
