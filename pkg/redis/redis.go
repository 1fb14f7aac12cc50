package redis

import (
	"PPEGuard/internal/entity"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const framesKeyPrefix = "ppe:session:frames:"

var ErrCacheMiss = errors.New("redis: cache miss")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// IRedis caches the ordered frames of analyzed sessions for window playback.
type IRedis interface {
	SetFrames(ctx context.Context, sessionID string, frames []entity.Frame, expiration time.Duration) error
	GetFrames(ctx context.Context, sessionID string) ([]entity.Frame, error)
	DeleteFrames(ctx context.Context, sessionID string) error
}

type redisClient struct {
	client *redis.Client
}

func New() IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client}
}

func FramesKey(sessionID string) string {
	return framesKeyPrefix + sessionID
}

func (r *redisClient) SetFrames(ctx context.Context, sessionID string, frames []entity.Frame, expiration time.Duration) error {
	key := FramesKey(sessionID)
	payload, err := encodeFrames(frames)
	if err != nil {
		return err
	}

	logrus.Debug(fmt.Sprintf("Caching %d frames for key %s with expiration %v", len(frames), key, expiration))
	if err := r.client.Set(ctx, key, payload, expiration).Err(); err != nil {
		logrus.Error(fmt.Sprintf("Error caching frames for key %s: %v", key, err))
		return err
	}
	return nil
}

func (r *redisClient) GetFrames(ctx context.Context, sessionID string) ([]entity.Frame, error) {
	key := FramesKey(sessionID)
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		logrus.Debug(fmt.Sprintf("Frames not found for key %s", key))
		return nil, ErrCacheMiss
	} else if err != nil {
		logrus.Error(fmt.Sprintf("Error getting frames for key %s: %v", key, err))
		return nil, err
	}

	return decodeFrames(val)
}

func (r *redisClient) DeleteFrames(ctx context.Context, sessionID string) error {
	key := FramesKey(sessionID)
	result, err := r.client.Del(ctx, key).Result()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error deleting frames for key %s: %v", key, err))
		return err
	}

	if result == 0 {
		logrus.Debug(fmt.Sprintf("Frames key %s not found for deletion", key))
	}
	return nil
}

func encodeFrames(frames []entity.Frame) ([]byte, error) {
	if frames == nil {
		frames = []entity.Frame{}
	}
	return json.Marshal(frames)
}

func decodeFrames(data []byte) ([]entity.Frame, error) {
	var frames []entity.Frame
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, fmt.Errorf("decode cached frames: %w", err)
	}
	return frames, nil
}
