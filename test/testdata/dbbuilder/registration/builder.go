package registrationbuilder

import (
	"context"
	"testing"

	"slimwell/intake-backend/internal/user"
	"slimwell/intake-backend/test/testdata"
	"slimwell/intake-backend/test/testdata/dbbuilder"

	"github.com/stretchr/testify/require"
)

type Builder struct {
	t  *testing.T
	db dbbuilder.DBTX
}

func New(t *testing.T, db dbbuilder.DBTX) *Builder {
	return &Builder{t: t, db: db}
}

func (b Builder) Queries() *user.Queries {
	return user.New(b.db)
}

func (b Builder) Create(opts ...Option) user.Registration {
	queries := b.Queries()
	ctx := context.Background()

	p := &FactoryParams{
		Name:         testdata.RandomName(),
		MobileNumber: "+91" + testdata.RandomMobileNumber(),
	}
	for _, opt := range opts {
		opt(p)
	}

	row, err := queries.Upsert(ctx, user.UpsertParams{
		MobileNumber: p.MobileNumber,
		Name:         p.Name,
	})
	require.NoError(b.t, err)

	if p.Verified {
		require.NoError(b.t, queries.MarkVerified(ctx, row.MobileNumber))
	}
	if p.HasQuizSubmission {
		require.NoError(b.t, queries.MarkQuizSubmitted(ctx, row.MobileNumber))
	}
	if p.Verified || p.HasQuizSubmission {
		row, err = queries.GetByMobileNumber(ctx, row.MobileNumber)
		require.NoError(b.t, err)
	}

	return row
}
