package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/smallbiznis/pricewatch/internal/candidate/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingService struct {
	domain.Service
	submitted []domain.SubmitRequest
	failWith  error
}

func (s *recordingService) Submit(_ context.Context, req domain.SubmitRequest) (*domain.CandidateRecord, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, domain.ErrInvalidName
	}
	s.submitted = append(s.submitted, req)
	return &domain.CandidateRecord{Source: req.Source, ExternalID: req.ExternalID, Status: domain.StatusStaged}, nil
}

func TestLoadStagesRows(t *testing.T) {
	svc := &recordingService{}
	loader := NewLoader(svc, zap.NewNop(), "selver")

	input := "\ufeffext_id,name,ean,size_text,brand,price,currency,source\n" +
		"sku-1,Alma piim 2.5%,4740012345678,1 l,Alma,\"1,19\",EUR,\n" +
		"sku-2,Leib,,,,2.10,,rimi\n" +
		",,,,,,,\n"

	summary, err := loader.Load(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, Summary{Rows: 2, Staged: 2}, summary)

	require.Len(t, svc.submitted, 2)
	first := svc.submitted[0]
	assert.Equal(t, "selver", first.Source)
	assert.Equal(t, "sku-1", first.ExternalID)
	assert.Equal(t, "1.19", first.Price.String())
	require.NotNil(t, first.NormalizedID)
	assert.Equal(t, "4740012345678", *first.NormalizedID)
	require.NotNil(t, first.Brand)
	assert.Equal(t, "Alma", *first.Brand)

	second := svc.submitted[1]
	assert.Equal(t, "rimi", second.Source)
	assert.Nil(t, second.NormalizedID)
	assert.Nil(t, second.SizeText)
	assert.Empty(t, second.Currency)
}

func TestLoadSkipsRejectedRows(t *testing.T) {
	svc := &recordingService{}
	loader := NewLoader(svc, zap.NewNop(), "selver")

	input := "source,ext_id,name,price\n" +
		"selver,sku-1,,1.00\n" +
		"selver,sku-2,Sai,abc\n" +
		"selver,sku-3,Sai,0.89\n"

	summary, err := loader.Load(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Rows)
	assert.Equal(t, 1, summary.Staged)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, []RowError{
		{Line: 2, Reason: "invalid_name"},
		{Line: 3, Reason: "invalid_price"},
	}, summary.Errors)
}

func TestLoadRequiresColumns(t *testing.T) {
	loader := NewLoader(&recordingService{}, zap.NewNop(), "selver")
	_, err := loader.Load(context.Background(), strings.NewReader("source,name,price\nselver,Sai,1\n"))
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "ext_id")
}

func TestLoadEmptyInput(t *testing.T) {
	loader := NewLoader(&recordingService{}, zap.NewNop(), "selver")
	summary, err := loader.Load(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
}

func TestLoadStopsOnServiceFailure(t *testing.T) {
	svc := &recordingService{failWith: errors.New("database is locked")}
	loader := NewLoader(svc, zap.NewNop(), "selver")

	summary, err := loader.Load(context.Background(), strings.NewReader("ext_id,name,price\nsku-1,Sai,0.89\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, 1, summary.Rows)
	assert.Zero(t, summary.Staged)
}
