package database

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func createIndexes() {
	createNetworkIndexes()
	createBookingIndexes()
}

func createNetworkIndexes() {
	// Stations
	stationsCollection := GetCollection("stations")
	stationsIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "primaryidentifier", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "location.coordinates", Value: "2d"}},
		},
		{
			Keys: bson.D{{Key: "code", Value: 1}},
		},
	}

	opts := options.CreateIndexes()
	_, err := stationsCollection.Indexes().CreateMany(context.Background(), stationsIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}

	// Routes
	routesCollection := GetCollection("routes")
	routesIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "primaryidentifier", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "managerref", Value: 1}},
		},
	}

	opts = options.CreateIndexes()
	_, err = routesCollection.Indexes().CreateMany(context.Background(), routesIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}

	// Vehicles
	vehiclesCollection := GetCollection("vehicles")
	vehiclesIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "primaryidentifier", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "bookeduntil", Value: 1},
			},
		},
	}

	opts = options.CreateIndexes()
	_, err = vehiclesCollection.Indexes().CreateMany(context.Background(), vehiclesIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createBookingIndexes() {
	// Trips
	tripsCollection := GetCollection("trips")
	_, err := tripsCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "primaryidentifier", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "vehicleref", Value: 1},
				{Key: "status", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "departuretime", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "arrivaltime", Value: 1},
			},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}

	// Reservations
	reservationsCollection := GetCollection("reservations")
	_, err = reservationsCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "primaryidentifier", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "resourceref", Value: 1},
				{Key: "status", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "userref", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "window.end", Value: 1},
			},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}

	// UserPushNotificationTarget
	userPushNotificationTargetCollection := GetCollection("user_push_notification_target")
	_, err = userPushNotificationTargetCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userid", Value: 1}},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}
