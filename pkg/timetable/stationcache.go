package timetable

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/tripline/tripline/pkg/cbdf"
	"github.com/tripline/tripline/pkg/database"
	"github.com/tripline/tripline/pkg/redis_client"
	"go.mongodb.org/mongo-driver/bson"
)

// StationCache keeps station lookups out of Mongo. Stations are immutable
// once referenced by a timetable so a long expiry is safe.
type StationCache struct {
	Cache *cache.Cache[string]
}

func (s *StationCache) Setup() {
	redisStore := redisstore.NewRedis(redis_client.Client, store.WithExpiration(90*time.Minute))

	s.Cache = cache.New[string](redisStore)
}

func (s *StationCache) Get(identifier string) *cbdf.Station {
	var station *cbdf.Station
	cacheKey := fmt.Sprintf("station/%s", identifier)

	stationCacheValue, err := s.Cache.Get(context.Background(), cacheKey)
	if err == nil {
		if stationCacheValue == "N/A" {
			return nil
		}

		json.Unmarshal([]byte(stationCacheValue), &station)
		return station
	}

	stationsCollection := database.GetCollection("stations")
	stationsCollection.FindOne(context.Background(), bson.M{"primaryidentifier": identifier}).Decode(&station)

	if station == nil {
		s.Cache.Set(context.Background(), cacheKey, "N/A")
	} else {
		stationJSON, _ := json.Marshal(station)
		s.Cache.Set(context.Background(), cacheKey, string(stationJSON))
	}

	return station
}
