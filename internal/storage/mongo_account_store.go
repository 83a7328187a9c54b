package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/FluidspaceWeb/development-server/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	userConfigsCollection = "user_configs"
	workspacesCollection  = "workspaces"

	integrationAuthsField = "integration_auths"
)

// scopeSelector maps an access type onto its backing collection. Private
// accounts live in the user's config document, shared accounts in the
// workspace document; both nest the same integration_auths shape, so the
// store logic never special-cases the scope.
type scopeSelector interface {
	collection() *mongo.Collection
}

type privateScope struct {
	db *mongo.Database
}

func (s privateScope) collection() *mongo.Collection {
	return s.db.Collection(userConfigsCollection)
}

type sharedScope struct {
	db *mongo.Database
}

func (s sharedScope) collection() *mongo.Collection {
	return s.db.Collection(workspacesCollection)
}

type MongoAccountStoreDependencies struct {
	// Database is the environment database holding user_configs and
	// workspaces.
	Database *mongo.Database
}

// MongoAccountStore persists authorized accounts as an array nested under
// the integration's id in the owner's document.
type MongoAccountStore struct {
	selectors map[domain.AccessType]scopeSelector
}

func NewMongoAccountStore(deps MongoAccountStoreDependencies) *MongoAccountStore {
	return &MongoAccountStore{
		selectors: map[domain.AccessType]scopeSelector{
			domain.AccessTypePrivate: privateScope{db: deps.Database},
			domain.AccessTypeShared:  sharedScope{db: deps.Database},
		},
	}
}

type ownerAuthsDocument struct {
	IntegrationAuths map[string][]domain.AccountAuth `bson:"integration_auths"`
}

func (s *MongoAccountStore) Count(ctx context.Context, scope domain.AccountScope) (int, error) {
	accounts, err := s.List(ctx, scope)
	if err != nil {
		return 0, err
	}
	return len(accounts), nil
}

func (s *MongoAccountStore) List(ctx context.Context, scope domain.AccountScope) ([]domain.AccountAuth, error) {
	selector, filter, err := s.resolve(scope)
	if err != nil {
		return nil, err
	}

	opts := options.FindOne().SetProjection(bson.M{
		"_id": 0,
		integrationAuthsField + "." + scope.IntegrationID: 1,
	})

	var doc ownerAuthsDocument
	err = selector.collection().FindOne(ctx, filter, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read integration auths: %w", err)
	}

	return doc.IntegrationAuths[scope.IntegrationID], nil
}

func (s *MongoAccountStore) Find(ctx context.Context, scope domain.AccountScope, accountID string) (domain.AccountAuth, error) {
	accounts, err := s.List(ctx, scope)
	if err != nil {
		return domain.AccountAuth{}, err
	}

	for _, account := range accounts {
		if account.ID == accountID {
			return account, nil
		}
	}

	return domain.AccountAuth{}, domain.ErrAccountNotFound
}

func (s *MongoAccountStore) Append(ctx context.Context, scope domain.AccountScope, account domain.AccountAuth) error {
	selector, filter, err := s.resolve(scope)
	if err != nil {
		return err
	}

	update := bson.M{
		"$push": bson.M{
			integrationAuthsField + "." + scope.IntegrationID: account,
		},
	}

	result, err := selector.collection().UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageWrite, err)
	}

	// Anything other than exactly one modified document is a lost write:
	// the user did authorize, but the credential is not saved.
	if result.ModifiedCount != 1 {
		return fmt.Errorf("%w: modified %d documents", domain.ErrStorageWrite, result.ModifiedCount)
	}

	return nil
}

func (s *MongoAccountStore) UpdateFields(ctx context.Context, scope domain.AccountScope, accountID string, patch domain.ClosedCredentialPatch) (bool, error) {
	if patch.IsZero() {
		return false, nil
	}

	selector, filter, err := s.resolve(scope)
	if err != nil {
		return false, err
	}

	credentialsPath := integrationAuthsField + "." + scope.IntegrationID + ".$[auth].credentials."
	set := bson.M{}
	if patch.RefreshToken != nil {
		set[credentialsPath+"refresh_token"] = patch.RefreshToken
	}
	if patch.Scope != nil {
		set[credentialsPath+"scope"] = *patch.Scope
	}

	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"auth._id": accountID}},
	})

	result, err := selector.collection().UpdateOne(ctx, filter, bson.M{"$set": set}, opts)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrStorageWrite, err)
	}

	return result.ModifiedCount == 1, nil
}

func (s *MongoAccountStore) Remove(ctx context.Context, scope domain.AccountScope, accountID string) (bool, error) {
	selector, filter, err := s.resolve(scope)
	if err != nil {
		return false, err
	}

	update := bson.M{
		"$pull": bson.M{
			integrationAuthsField + "." + scope.IntegrationID: bson.M{"_id": accountID},
		},
	}

	result, err := selector.collection().UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrStorageWrite, err)
	}

	return result.ModifiedCount == 1, nil
}

func (s *MongoAccountStore) resolve(scope domain.AccountScope) (scopeSelector, bson.M, error) {
	selector, ok := s.selectors[scope.AccessType]
	if !ok {
		return nil, nil, fmt.Errorf("unknown access type %q", scope.AccessType)
	}

	ownerOID, err := primitive.ObjectIDFromHex(scope.OwnerID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid owner id: %w", err)
	}

	return selector, bson.M{"_id": ownerOID}, nil
}
