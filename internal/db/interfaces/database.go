package interfaces

import "context"

// Database represents the main database interface
type Database interface {
	// Connect establishes a connection to the database
	Connect(ctx context.Context) error

	// Disconnect closes the database connection
	Disconnect(ctx context.Context) error

	// IsHealthy checks if the database connection is healthy
	IsHealthy(ctx context.Context) bool

	// Migrate creates tables and applies schema changes
	Migrate(ctx context.Context) error

	Users() UserRepository
	Groups() GroupRepository
	Posts() PostRepository
	Comments() CommentRepository
	Follows() FollowRepository
}
