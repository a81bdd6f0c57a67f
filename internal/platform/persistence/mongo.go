package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/retail-banking-ledger/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoDB is the connection behind the fraud alert audit trail
type MongoDB struct {
	logger   *slog.Logger
	client   *mongo.Client
	database *mongo.Database
}

func mongoClientOptions(cfg *config.MongoDBConfig) *options.ClientOptions {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName("ledger").
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime)
	if cfg.Timeout > 0 {
		opts.SetTimeout(cfg.Timeout).SetServerSelectionTimeout(cfg.Timeout)
	}
	return opts
}

// NewMongoDB connects and pings the primary. The client is disconnected again
// when the ping fails.
func NewMongoDB(ctx context.Context, logger *slog.Logger, cfg *config.MongoDBConfig) (*MongoDB, error) {
	client, err := mongo.Connect(ctx, mongoClientOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB", "database", cfg.Database)
	return &MongoDB{logger: logger, client: client, database: client.Database(cfg.Database)}, nil
}

func (m *MongoDB) Database() *mongo.Database {
	return m.database
}

func (m *MongoDB) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	m.logger.Info("Closed MongoDB connection")
	return nil
}
