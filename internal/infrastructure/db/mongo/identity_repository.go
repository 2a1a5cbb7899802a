package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/pkg/metrics"
)

const (
	collectionUsers = "users"
	collectionRoles = "roles"
	driverLabel     = "mongo"
)

// IdentityRepository stores users and roles in two collections. Role
// memberships and claims are embedded in the user document so each grant is
// a single atomic update.
type IdentityRepository struct {
	client *mongo.Client
	users  *mongo.Collection
	roles  *mongo.Collection
}

func NewIdentityRepository(client *mongo.Client, db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{
		client: client,
		users:  db.Collection(collectionUsers),
		roles:  db.Collection(collectionRoles),
	}
}

type userDoc struct {
	ID                 string     `bson:"_id"`
	Username           string     `bson:"username"`
	NormalizedUsername string     `bson:"normalized_username"`
	Email              string     `bson:"email"`
	NormalizedEmail    string     `bson:"normalized_email"`
	PasswordHash       string     `bson:"password_hash"`
	FirstName          string     `bson:"first_name"`
	LastName           string     `bson:"last_name"`
	RoleIDs            []string   `bson:"role_ids"`
	Claims             []claimDoc `bson:"claims"`
	CreatedAt          int64      `bson:"created_at"`
	UpdatedAt          int64      `bson:"updated_at"`
}

type claimDoc struct {
	Type  string `bson:"type"`
	Value string `bson:"value"`
}

type roleDoc struct {
	ID             string `bson:"_id"`
	Name           string `bson:"name"`
	NormalizedName string `bson:"normalized_name"`
}

func (d *userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:                 d.ID,
		Username:           d.Username,
		NormalizedUsername: d.NormalizedUsername,
		Email:              d.Email,
		NormalizedEmail:    d.NormalizedEmail,
		PasswordHash:       d.PasswordHash,
		FirstName:          d.FirstName,
		LastName:           d.LastName,
		CreatedAt:          unixToTime(d.CreatedAt),
		UpdatedAt:          unixToTime(d.UpdatedAt),
	}
}

func (r *IdentityRepository) CreateUser(ctx context.Context, user *domain.User) error {
	defer metrics.ObserveStore(driverLabel, "create_user")()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := userDoc{
		ID:                 user.ID,
		Username:           user.Username,
		NormalizedUsername: user.NormalizedUsername,
		Email:              user.Email,
		NormalizedEmail:    user.NormalizedEmail,
		PasswordHash:       user.PasswordHash,
		FirstName:          user.FirstName,
		LastName:           user.LastName,
		RoleIDs:            []string{},
		Claims:             []claimDoc{},
		CreatedAt:          user.CreatedAt.Unix(),
		UpdatedAt:          user.UpdatedAt.Unix(),
	}
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *IdentityRepository) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	defer metrics.ObserveStore(driverLabel, "find_user_by_id")()
	return r.findUser(ctx, bson.M{"_id": id})
}

func (r *IdentityRepository) FindUserByNormalizedEmail(ctx context.Context, normalizedEmail string) (*domain.User, error) {
	defer metrics.ObserveStore(driverLabel, "find_user_by_email")()
	return r.findUser(ctx, bson.M{"normalized_email": normalizedEmail})
}

func (r *IdentityRepository) FindUserByNormalizedUsername(ctx context.Context, normalizedUsername string) (*domain.User, error) {
	defer metrics.ObserveStore(driverLabel, "find_user_by_username")()
	return r.findUser(ctx, bson.M{"normalized_username": normalizedUsername})
}

func (r *IdentityRepository) findUser(ctx context.Context, filter bson.M) (*domain.User, error) {
	doc, err := r.findUserDoc(ctx, filter)
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *IdentityRepository) findUserDoc(ctx context.Context, filter bson.M) (*userDoc, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDoc
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &doc, nil
}

func (r *IdentityRepository) UserClaims(ctx context.Context, userID string) ([]domain.Claim, error) {
	defer metrics.ObserveStore(driverLabel, "user_claims")()

	doc, err := r.findUserDoc(ctx, bson.M{"_id": userID})
	if errors.Is(err, domain.ErrUserNotFound) {
		return []domain.Claim{}, nil
	}
	if err != nil {
		return nil, err
	}
	claims := make([]domain.Claim, 0, len(doc.Claims))
	for _, c := range doc.Claims {
		claims = append(claims, domain.Claim{Type: c.Type, Value: c.Value})
	}
	return claims, nil
}

func (r *IdentityRepository) AddUserClaim(ctx context.Context, userID string, claim domain.Claim) error {
	defer metrics.ObserveStore(driverLabel, "add_user_claim")()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$push": bson.M{"claims": claimDoc{Type: claim.Type, Value: claim.Value}},
			"$set":  bson.M{"updated_at": time.Now().UTC().Unix()},
		},
	)
	if err != nil {
		return fmt.Errorf("add claim: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *IdentityRepository) CreateRole(ctx context.Context, role *domain.Role) error {
	defer metrics.ObserveStore(driverLabel, "create_role")()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := roleDoc{ID: role.ID, Name: role.Name, NormalizedName: role.NormalizedName}
	if _, err := r.roles.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrRoleExists
		}
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}

func (r *IdentityRepository) FindRoleByNormalizedName(ctx context.Context, normalizedName string) (*domain.Role, error) {
	defer metrics.ObserveStore(driverLabel, "find_role_by_name")()
	return r.findRole(ctx, bson.M{"normalized_name": normalizedName})
}

func (r *IdentityRepository) findRole(ctx context.Context, filter bson.M) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc roleDoc
	if err := r.roles.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &domain.Role{ID: doc.ID, Name: doc.Name, NormalizedName: doc.NormalizedName}, nil
}

// UserRoles resolves the embedded role ids to canonical names, sorted.
func (r *IdentityRepository) UserRoles(ctx context.Context, userID string) ([]string, error) {
	defer metrics.ObserveStore(driverLabel, "user_roles")()

	doc, err := r.findUserDoc(ctx, bson.M{"_id": userID})
	if errors.Is(err, domain.ErrUserNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(doc.RoleIDs) == 0 {
		return []string{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.roles.Find(ctx, bson.M{"_id": bson.M{"$in": doc.RoleIDs}},
		options.Find().SetProjection(bson.M{"name": 1}))
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	var roles []roleDoc
	if err := cursor.All(ctx, &roles); err != nil {
		return nil, fmt.Errorf("decode roles: %w", err)
	}

	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *IdentityRepository) IsUserInRole(ctx context.Context, userID, roleID string) (bool, error) {
	defer metrics.ObserveStore(driverLabel, "is_user_in_role")()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.users.CountDocuments(ctx, bson.M{"_id": userID, "role_ids": roleID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return n > 0, nil
}

// AddUserToRole appends roleID unless already present. The filter makes the
// check and the write one operation.
func (r *IdentityRepository) AddUserToRole(ctx context.Context, userID, roleID string) error {
	defer metrics.ObserveStore(driverLabel, "add_user_to_role")()

	if _, err := r.findRole(ctx, bson.M{"_id": roleID}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.users.UpdateOne(ctx,
		bson.M{"_id": userID, "role_ids": bson.M{"$ne": roleID}},
		bson.M{
			"$push": bson.M{"role_ids": roleID},
			"$set":  bson.M{"updated_at": time.Now().UTC().Unix()},
		},
	)
	if err != nil {
		return fmt.Errorf("add role: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.users.CountDocuments(ctx, bson.M{"_id": userID}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return domain.ErrRoleAlreadyAssigned
}

func (r *IdentityRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return r.client.Ping(ctx, nil)
}

// EnsureIndexes creates the unique indexes that back the duplicate checks.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "normalized_email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_normalized_email"),
		},
		{
			Keys:    bson.D{{Key: "normalized_username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_normalized_username"),
		},
	}
	if _, err := r.users.Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	roleIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "normalized_name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_normalized_name"),
	}
	if _, err := r.roles.Indexes().CreateOne(ctx, roleIndex); err != nil {
		return fmt.Errorf("create role index: %w", err)
	}
	return nil
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
