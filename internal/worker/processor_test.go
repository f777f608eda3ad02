package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/HoloHeri/internal/queue"
)

type upload struct {
	key, path, contentType string
}

type fakeObjects struct {
	uploads []upload
	removed []string
	err     error
}

func (f *fakeObjects) UploadFile(_ context.Context, key, path, contentType string) error {
	if f.err != nil {
		return f.err
	}
	f.uploads = append(f.uploads, upload{key, path, contentType})
	return nil
}

func (f *fakeObjects) Remove(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	return nil
}

func TestHandleReclaim(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"thumb-1.png", "glb-1.glb"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	objects := &fakeObjects{}
	p := NewProcessor(dir, objects, zap.NewNop().Sugar())

	task, err := queue.NewReclaimTask([]string{"thumb-1.png", "glb-1.glb"})
	require.NoError(t, err)
	require.NoError(t, p.handleReclaim(context.Background(), task))

	assert.NoFileExists(t, filepath.Join(dir, "thumb-1.png"))
	assert.NoFileExists(t, filepath.Join(dir, "glb-1.glb"))
	assert.Equal(t, []string{"glb-1.glb"}, objects.removed)
}

func TestHandleReclaimReportsBadNames(t *testing.T) {
	p := NewProcessor(t.TempDir(), nil, zap.NewNop().Sugar())
	task, err := queue.NewReclaimTask([]string{"../escape.png"})
	require.NoError(t, err)
	assert.Error(t, p.handleReclaim(context.Background(), task))
}

func TestHandleMirror(t *testing.T) {
	dir := t.TempDir()
	objects := &fakeObjects{}
	p := NewProcessor(dir, objects, zap.NewNop().Sugar())

	task, err := queue.NewMirrorTask("glb-1.glb")
	require.NoError(t, err)
	require.NoError(t, p.handleMirror(context.Background(), task))

	require.Len(t, objects.uploads, 1)
	assert.Equal(t, upload{"glb-1.glb", filepath.Join(dir, "glb-1.glb"), "model/gltf-binary"}, objects.uploads[0])
}

func TestHandleMirrorFailures(t *testing.T) {
	task, err := queue.NewMirrorTask("glb-1.glb")
	require.NoError(t, err)

	p := NewProcessor(t.TempDir(), nil, zap.NewNop().Sugar())
	err = p.handleMirror(context.Background(), task)
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	p = NewProcessor(t.TempDir(), &fakeObjects{err: errors.New("bucket offline")}, zap.NewNop().Sugar())
	err = p.handleMirror(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))

	bad := asynq.NewTask(queue.MirrorMediaTask, []byte("{"))
	err = p.handleMirror(context.Background(), bad)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "model/gltf-binary", contentType("a.GLB"))
	assert.Equal(t, "model/gltf+json", contentType("a.gltf"))
}
