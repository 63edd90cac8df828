package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/recipes/", "200"))
	RecordAPIRequest("GET", "/api/recipes/", "200", 15*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/recipes/", "200"))
	assert.Equal(t, before+1, after)
}

func TestRecordRelationChange(t *testing.T) {
	before := testutil.ToFloat64(RelationChangesTotal.WithLabelValues("favorite", "add"))
	RecordRelationChange("favorite", "add")
	assert.Equal(t, before+1, testutil.ToFloat64(RelationChangesTotal.WithLabelValues("favorite", "add")))
}
