package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/tutorcrm-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]string
	err := repo.Get(ctx, "availability:template:t1", &dest)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))

	assert.NoError(t, repo.Set(ctx, "availability:template:t1", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.Delete(ctx, "availability:template:t1"))
	assert.NoError(t, repo.Close())
}
