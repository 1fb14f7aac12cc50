package redis

import (
	"PPEGuard/internal/entity"
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramesKey(t *testing.T) {
	assert.Equal(t, "ppe:session:frames:01J0ABC", FramesKey("01J0ABC"))
}

func TestFrameCodec(t *testing.T) {
	frames := []entity.Frame{
		entity.EmptyFrame(0),
		{Timestamp: 1, Persons: []entity.PersonDetection{{
			TrackingID: 3,
			BodyParts: []entity.BodyPartDetection{{
				Name:                entity.BodyPartHead,
				DetectionConfidence: 98,
				Equipment: []entity.EquipmentDetection{{
					RawType:    "HELMET",
					Type:       entity.EquipmentHelmet,
					Confidence: 96.5,
					Box:        entity.Rect{Left: 0.1, Top: 0.1, Width: 0.2, Height: 0.2},
				}},
			}},
		}}},
	}

	data, err := encodeFrames(frames)
	require.NoError(t, err)

	got, err := decodeFrames(data)
	require.NoError(t, err)
	if diff := cmp.Diff(frames, got); diff != "" {
		t.Fatalf("frames changed through the cache codec (-want +got):\n%s", diff)
	}

	data, err = encodeFrames(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	_, err = decodeFrames([]byte("{"))
	assert.Error(t, err)
}

func TestRedisFrames(t *testing.T) {
	if os.Getenv("REDIS_ADDRESS") == "" {
		t.Skip("REDIS_ADDRESS not set")
	}

	r := New()
	ctx := context.Background()
	id := "test-" + time.Now().Format("150405.000000")

	require.NoError(t, r.SetFrames(ctx, id, []entity.Frame{entity.EmptyFrame(2)}, time.Minute))

	frames, err := r.GetFrames(ctx, id)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, 2.0, frames[0].Timestamp)

	require.NoError(t, r.DeleteFrames(ctx, id))
	_, err = r.GetFrames(ctx, id)
	assert.ErrorIs(t, err, ErrCacheMiss)
}
