package config

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

// redisCtx backs the key/value helpers below; they are short single-key calls.
var redisCtx = context.Background()

func GetRedisDB() *redis.Client {
	return rdb
}

// GetRedisLock is nil until Redis is connected.
func GetRedisLock() *redislock.Client {
	return locker
}

// SetRedisDB installs an already connected client together with its lock client.
func SetRedisDB(client *redis.Client) {
	rdb = client
	locker = nil
	if client != nil {
		locker = redislock.New(client)
	}
}

// redisGet reports (value, found, err). A missing client is a miss.
func redisGet(key string) (string, bool, error) {
	if rdb == nil {
		return "", false, nil
	}
	val, err := rdb.Get(redisCtx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func GetRedisValue(key string) (string, bool, error) {
	return redisGet(key)
}

// GetRedisObject decodes a JSON value written by SetRedisObject into dest.
func GetRedisObject(key string, dest interface{}) (bool, error) {
	val, found, err := redisGet(key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func SetRedisValue(key string, value string, exp time.Duration) error {
	if rdb == nil {
		return nil
	}
	return rdb.Set(redisCtx, key, value, exp).Err()
}

func SetRedisObject(key string, obj interface{}, exp time.Duration) error {
	if rdb == nil {
		return nil
	}
	payload, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return rdb.Set(redisCtx, key, payload, exp).Err()
}

func RemoveRedisKey(keys ...string) error {
	if rdb == nil {
		return nil
	}
	return rdb.Del(redisCtx, keys...).Err()
}

// redisOptions reads REDIS_ADDRESS, REDIS_PASSWORD, REDIS_DB and REDIS_POOL_SIZE.
func redisOptions() *redis.Options {
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		addr = "localhost:6379"
	}
	return &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       intFromEnv("REDIS_DB", 0),
		PoolSize: intFromEnv("REDIS_POOL_SIZE", 100),
	}
}

// ConnectRedisWithRetry blocks until Redis answers PING, then installs the
// client and the lock client.
func ConnectRedisWithRetry() {
	opts := redisOptions()
	for attempt := 1; ; attempt++ {
		client := redis.NewClient(opts)
		err := client.Ping(redisCtx).Err()
		if err == nil {
			SetRedisDB(client)
			log.Printf("connected to redis (attempt=%d addr=%s)", attempt, opts.Addr)
			return
		}
		_ = client.Close()
		sleep := retryBackoff(attempt)
		log.Printf("failed to connect redis (attempt=%d addr=%s): %v; retrying in %s", attempt, opts.Addr, err, sleep)
		time.Sleep(sleep)
	}
}
