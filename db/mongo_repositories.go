package db

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"onehandcoder/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// userDocument is the stored shape. Field names match documents written by
// earlier versions of the service, so existing collections load unchanged.
type userDocument struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Username         string             `bson:"username"`
	Email            string             `bson:"email"`
	Password         string             `bson:"password"`
	Subscription     string             `bson:"subscription"`
	Progress         float64            `bson:"progress"`
	History          []historyDocument  `bson:"history"`
	CompletedCourses []string           `bson:"completedCourses"`
	SavedPrograms    []programDocument  `bson:"savedPrograms"`
	CreatedAt        time.Time          `bson:"createdAt,omitempty"`
	UpdatedAt        time.Time          `bson:"updatedAt,omitempty"`
}

type historyDocument struct {
	Code string    `bson:"code"`
	Date time.Time `bson:"date"`
}

type programDocument struct {
	Title   string    `bson:"title"`
	Content string    `bson:"content"`
	Date    time.Time `bson:"date"`
}

func toUserDocument(user *models.User, id primitive.ObjectID) *userDocument {
	doc := &userDocument{
		ID:               id,
		Username:         user.Username,
		Email:            user.Email,
		Password:         user.PasswordHash,
		Subscription:     user.Subscription,
		Progress:         float64(user.Progress),
		History:          make([]historyDocument, 0, len(user.History)),
		CompletedCourses: user.CompletedCourses,
		SavedPrograms:    make([]programDocument, 0, len(user.SavedPrograms)),
		CreatedAt:        user.CreatedAt,
		UpdatedAt:        user.UpdatedAt,
	}
	if doc.CompletedCourses == nil {
		doc.CompletedCourses = []string{}
	}
	for _, h := range user.History {
		doc.History = append(doc.History, historyDocument{Code: h.Code, Date: h.Timestamp})
	}
	for _, p := range user.SavedPrograms {
		doc.SavedPrograms = append(doc.SavedPrograms, programDocument{Title: p.Title, Content: p.Content, Date: p.Timestamp})
	}
	return doc
}

func (d *userDocument) toModel() *models.User {
	user := &models.User{
		ID:               d.ID.Hex(),
		Username:         d.Username,
		Email:            d.Email,
		PasswordHash:     d.Password,
		Subscription:     d.Subscription,
		Progress:         legacyProgress(d.Progress),
		History:          make([]models.HistoryEntry, 0, len(d.History)),
		CompletedCourses: d.CompletedCourses,
		SavedPrograms:    make([]models.SavedProgram, 0, len(d.SavedPrograms)),
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
	for _, h := range d.History {
		user.History = append(user.History, models.HistoryEntry{Code: h.Code, Timestamp: h.Date})
	}
	for _, p := range d.SavedPrograms {
		user.SavedPrograms = append(user.SavedPrograms, models.SavedProgram{Title: p.Title, Content: p.Content, Timestamp: p.Date})
	}
	user.Normalize()
	return user
}

// legacyProgress rounds stored values, which older documents may hold as
// fractional doubles.
func legacyProgress(p float64) int {
	if math.IsNaN(p) {
		return models.MinProgress
	}
	p = math.Max(models.MinProgress, math.Min(models.MaxProgress, p))
	return int(math.Round(p))
}

// MongoUserRepository implements the UserRepository interface for MongoDB
type MongoUserRepository struct {
	client     *mongo.Client
	database   string
	collection string
}

// NewMongoUserRepository creates a new MongoUserRepository
func NewMongoUserRepository(client *mongo.Client, database, collection string) *MongoUserRepository {
	return &MongoUserRepository{
		client:     client,
		database:   database,
		collection: collection,
	}
}

// Collection returns the underlying users collection
func (r *MongoUserRepository) Collection() *mongo.Collection {
	return r.client.Database(r.database).Collection(r.collection)
}

// Ping checks the server is reachable
func (r *MongoUserRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

// Close closes the MongoDB connection
func (r *MongoUserRepository) Close() error {
	return r.client.Disconnect(context.Background())
}

// Create inserts a new user and assigns its ID
func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	doc := toUserDocument(user, primitive.NewObjectID())

	_, err := r.Collection().InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("error inserting user: %w", err)
	}

	return doc.toModel(), nil
}

// FindByID finds a user by ID. Ids that are not ObjectIDs cannot exist.
func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

// FindByUsername finds a user by username
func (r *MongoUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	err := r.Collection().FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding user: %w", err)
	}
	return doc.toModel(), nil
}

// FindAll returns every user
func (r *MongoUserRepository) FindAll(ctx context.Context) ([]*models.User, error) {
	cursor, err := r.Collection().Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("error querying users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []*models.User
	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("error decoding user: %w", err)
		}
		users = append(users, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// Update replaces the stored user document
func (r *MongoUserRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return nil, ErrNotFound
	}

	user.UpdatedAt = time.Now().UTC()
	doc := toUserDocument(user, objectID)

	result, err := r.Collection().ReplaceOne(ctx, bson.M{"_id": objectID}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}

	return doc.toModel(), nil
}
