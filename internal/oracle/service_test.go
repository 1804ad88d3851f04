package oracle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/wingo/internal/model"
	"github.com/rcliao/wingo/internal/ocr"
	"github.com/rcliao/wingo/internal/predict"
	"github.com/rcliao/wingo/internal/store"
)

func newTestService(t *testing.T, rec ocr.Recognizer) (*Service, store.Store) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "wingo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st, rec, nil), st
}

func TestCorrectionOverridesFuturePredictions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	p, err := svc.Submit(ctx, "C", "10775")
	require.NoError(t, err)
	assert.Equal(t, model.Outcome{Color: model.Violet, Size: model.Big}, p.Outcome)

	before, err := svc.Predict(ctx, "12346")
	require.NoError(t, err)

	reply := svc.HandleText(ctx, "C", "CORRECT: GREEN BIG")
	assert.Equal(t, "✅ Updated memory: 10775 → GREEN BIG", reply)

	for i := 0; i < 3; i++ {
		p, err = svc.Predict(ctx, "10775")
		require.NoError(t, err)
		assert.Equal(t, model.Outcome{Color: model.Green, Size: model.Big}, p.Outcome)
		assert.Equal(t, predict.SourceOverride, p.Source)
	}

	after, err := svc.Predict(ctx, "12346")
	require.NoError(t, err)
	assert.Equal(t, before, after, "other serials unaffected")
}

func TestCorrectionWithoutHistoryIsRejected(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)

	_, err := svc.Correct(ctx, "C", "GREEN BIG")
	assert.ErrorIs(t, err, ErrNoPendingSerial)
	assert.Equal(t, noSerialReply, svc.HandleText(ctx, "C", "correct: green big"))

	list, err := st.ListOverrides(ctx, store.ListParams{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCorrectionNeedsTwoTokens(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)

	_, err := svc.Submit(ctx, "C", "10775")
	require.NoError(t, err)

	for _, body := range []string{"", "GREEN", "   BIG  "} {
		_, err := svc.Correct(ctx, "C", body)
		assert.ErrorIs(t, err, ErrInvalidCorrection, "body %q", body)
	}
	assert.Equal(t, noSerialReply, svc.HandleText(ctx, "C", "Correct: GREEN"))

	_, err = st.GetOverride(ctx, "10775")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCorrectionRejectsUnknownTokens(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)

	_, err := svc.Submit(ctx, "C", "10775")
	require.NoError(t, err)

	_, err = svc.Correct(ctx, "C", "BLUE BIG")
	assert.ErrorIs(t, err, ErrInvalidCorrection)
	_, err = svc.Correct(ctx, "C", "GREEN HUGE")
	assert.ErrorIs(t, err, ErrInvalidCorrection)

	_, err = st.GetOverride(ctx, "10775")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSecondCorrectionOverwrites(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	_, err := svc.Submit(ctx, "C", "10775")
	require.NoError(t, err)
	_, err = svc.Correct(ctx, "C", "green big")
	require.NoError(t, err)
	o, err := svc.Correct(ctx, "C", "RED SMALL extra tokens")
	require.NoError(t, err)
	assert.Equal(t, 2, o.Version)

	p, err := svc.Predict(ctx, "10775")
	require.NoError(t, err)
	assert.Equal(t, model.Outcome{Color: model.Red, Size: model.Small}, p.Outcome)
}

func TestNewSerialSupersedesPending(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	_, err := svc.Submit(ctx, "C", "10775")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "C", "10776")
	require.NoError(t, err)
	o, err := svc.Correct(ctx, "C", "VIOLET SMALL")
	require.NoError(t, err)
	assert.Equal(t, "10776", o.Serial)

	p, err := svc.Predict(ctx, "10775")
	require.NoError(t, err)
	assert.Equal(t, predict.SourceRule, p.Source)
}

func TestHistoryIsPerChat(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	_, err := svc.Submit(ctx, "A", "10775")
	require.NoError(t, err)
	_, err = svc.Correct(ctx, "B", "GREEN BIG")
	assert.ErrorIs(t, err, ErrNoPendingSerial)
}

func TestSubmitRejectsNonDigits(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)

	for _, serial := range []string{"", "10a75", "10 775", "-1077"} {
		_, err := svc.Submit(ctx, "C", serial)
		assert.ErrorIs(t, err, ErrInvalidSerial, "serial %q", serial)
	}
	_, err := st.GetChat(ctx, "C")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestHandleText(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"start", "/start", Welcome},
		{"start with bot name", "/start@WingoBot", Welcome},
		{"serial", " 12345 ", "🎯 Serial: 12345\n🎨 Color: GREEN\n🔸 Size: BIG"},
		{"junk", "hello there", invalidInputReply},
		{"correction", "correct: violet small", "✅ Updated memory: 12345 → VIOLET SMALL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.HandleText(ctx, "chat-1", tt.in))
		})
	}
}

type failingStore struct {
	store.Store
}

var errDiskFull = errors.New("disk full")

func (failingStore) GetOverride(context.Context, string) (*model.Override, error) {
	return nil, store.ErrNotFound
}

func (failingStore) PutChat(context.Context, store.ChatParams) (*model.ChatEntry, error) {
	return nil, errDiskFull
}

func (failingStore) GetChat(_ context.Context, chatID string) (*model.ChatEntry, error) {
	return &model.ChatEntry{ChatID: chatID, LastSerial: "10775"}, nil
}

func (failingStore) PutOverride(context.Context, store.OverrideParams) (*model.Override, error) {
	return nil, errDiskFull
}

func TestPersistenceFailureBecomesReply(t *testing.T) {
	ctx := context.Background()
	svc := New(failingStore{}, nil, nil)

	_, err := svc.Submit(ctx, "C", "10775")
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, storageFailedReply, svc.HandleText(ctx, "C", "10775"))

	_, err = svc.Correct(ctx, "C", "GREEN BIG")
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, storageFailedReply, svc.HandleText(ctx, "C", "CORRECT: GREEN BIG"))
}

func TestHandlePhoto(t *testing.T) {
	ctx := context.Background()
	rec := ocr.Func(func(_ context.Context, img []byte) (string, error) {
		if string(img) == "blurry" {
			return "", errors.New("no text")
		}
		return "10001 RED\n10002 GREEN\n10003 RED\n10004 GREEN\n10005 RED\n", nil
	})
	svc, _ := newTestService(t, rec)

	reply := svc.HandlePhoto(ctx, "C", []byte("png"))
	assert.Equal(t, "📊 Analysis Complete:\n\n"+
		"RED-GREEN alternate pattern seen.\n"+
		"Prediction: RED, BIG (Next Serial: 10006)", reply)

	assert.Equal(t, imageFailedReply, svc.HandlePhoto(ctx, "C", []byte("blurry")))
}

func TestHandlePhotoWithoutRecognizer(t *testing.T) {
	svc, _ := newTestService(t, nil)
	assert.Equal(t, imageFailedReply, svc.HandlePhoto(context.Background(), "C", []byte("png")))
}

func TestAnalyzeNoPattern(t *testing.T) {
	svc, _ := newTestService(t, nil)

	r, err := svc.Analyze(context.Background(), "no rows here")
	require.NoError(t, err)
	assert.Equal(t, "No strong pattern found.", r.String())
}

func TestConcurrentChatsAreSerialized(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chat := fmt.Sprintf("chat-%d", i%4)
			_, err := svc.Submit(ctx, chat, fmt.Sprintf("%d", 10000+i))
			assert.NoError(t, err)
			_, err = svc.Correct(ctx, chat, "GREEN SMALL")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Zero(t, svc.locks.size(), "lock entries released")
	list, err := st.ListOverrides(ctx, store.ListParams{Limit: 100})
	require.NoError(t, err)
	assert.NotEmpty(t, list)
}
