package evidence

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/google/uuid"
	"github.com/ludoarena/match-engine/internal/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	matchID, userID := uuid.New(), uuid.New()

	testCases := []struct {
		filename string
		wantErr  bool
	}{
		{"shot.png", false},
		{"SHOT.JPG", false},
		{"result.webp", false},
		{"payload.exe", true},
		{"noext", true},
	}
	for _, tc := range testCases {
		t.Run(tc.filename, func(t *testing.T) {
			key, err := ObjectKey(matchID, userID, tc.filename)
			if tc.wantErr {
				assert.ErrorIs(t, err, match.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(key, "evidence/"+matchID.String()+"/"+userID.String()))
		})
	}
}

func TestLocalStoreSave(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "/uploads/")
	require.NoError(t, err)

	matchID, userID := uuid.New(), uuid.New()
	ref, err := s.Save(context.Background(), matchID, userID, "win.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "/uploads/evidence/"+matchID.String()+"/"))

	rel := strings.TrimPrefix(ref, "/uploads/evidence/")
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	_, err = s.Save(context.Background(), matchID, userID, "win.gif", "image/gif", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestLocalStoreSaveFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "/uploads")
	require.NoError(t, err)

	matchID, userID := uuid.New(), uuid.New()
	body := io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(errors.New("connection reset")))
	_, err = s.Save(context.Background(), matchID, userID, "win.png", "image/png", body)
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, matchID.String()))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
