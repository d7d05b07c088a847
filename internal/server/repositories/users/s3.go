package users

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dmitrijs2005/accountd/internal/common"
	"github.com/dmitrijs2005/accountd/internal/server/config"
	"github.com/dmitrijs2005/accountd/internal/server/models"
)

// s3API is the subset of the S3 client the repository uses. Tests provide
// a fake; production code passes *s3.Client.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Repository stores one JSON object per user under users/<id>.json and a
// marker object per normalized email under emails/<email> holding the user
// id. The marker doubles as the email index and the duplicate check.
//
// S3 offers no uniqueness constraint, so operations that claim an email
// are serialized behind a per-email in-process lock.
type S3Repository struct {
	client s3API
	bucket string
	locks  keyedLocks
}

// NewS3Repository builds a repository talking to the configured
// S3-compatible endpoint.
func NewS3Repository(ctx context.Context, cfg *config.Config) (*S3Repository, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3Repository(client, cfg.S3Bucket), nil
}

func newS3Repository(client s3API, bucket string) *S3Repository {
	return &S3Repository{client: client, bucket: bucket}
}

func userKey(id string) string {
	return "users/" + id + ".json"
}

func emailKey(email string) string {
	return "emails/" + email
}

func (r *S3Repository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	unlock := r.locks.lock(user.Email)
	defer unlock()

	taken, err := r.emailTaken(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, common.ErrorAlreadyExists
	}

	if err := r.putUser(ctx, user); err != nil {
		return nil, err
	}
	if err := r.putEmailMarker(ctx, user.Email, user.ID); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *S3Repository) GetByID(ctx context.Context, id string) (*models.User, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(userKey(id)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("storage error: %w", err)
	}
	defer out.Body.Close()

	user := &models.User{}
	if err := json.NewDecoder(out.Body).Decode(user); err != nil {
		return nil, fmt.Errorf("storage error: %w", err)
	}

	return user, nil
}

func (r *S3Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(emailKey(email)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("storage error: %w", err)
	}
	defer out.Body.Close()

	id, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("storage error: %w", err)
	}

	return r.GetByID(ctx, strings.TrimSpace(string(id)))
}

func (r *S3Repository) Update(ctx context.Context, id string, patch *Patch) (*models.User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldEmail := user.Email
	emailChanged := patch.Email != nil && *patch.Email != oldEmail

	if emailChanged {
		unlock := r.locks.lock(*patch.Email)
		defer unlock()

		taken, err := r.emailTaken(ctx, *patch.Email)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, common.ErrorAlreadyExists
		}
	}

	applyPatch(user, patch)
	user.UpdatedAt = time.Now().UTC()

	if err := r.putUser(ctx, user); err != nil {
		return nil, err
	}

	if emailChanged {
		if err := r.putEmailMarker(ctx, user.Email, user.ID); err != nil {
			return nil, err
		}
		_, err = r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(emailKey(oldEmail)),
		})
		if err != nil {
			return nil, fmt.Errorf("storage error: %w", err)
		}
	}

	return user, nil
}

func (r *S3Repository) emailTaken(ctx context.Context, email string) (bool, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(emailKey(email)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage error: %w", err)
	}
	out.Body.Close()
	return true, nil
}

func (r *S3Repository) putUser(ctx context.Context, user *models.User) error {
	body, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("storage error: %w", err)
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(userKey(user.ID)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("storage error: %w", err)
	}

	return nil
}

func (r *S3Repository) putEmailMarker(ctx context.Context, email, id string) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(emailKey(email)),
		Body:   strings.NewReader(id),
	})
	if err != nil {
		return fmt.Errorf("storage error: %w", err)
	}

	return nil
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}

// keyedLocks hands out one mutex per key.
type keyedLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *keyedLocks) lock(key string) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*sync.Mutex)
	}
	km, ok := l.m[key]
	if !ok {
		km = &sync.Mutex{}
		l.m[key] = km
	}
	l.mu.Unlock()

	km.Lock()
	return km.Unlock
}
