package datasource

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposite(t *testing.T) {
	fields := []string{"2", "businessNo1", "bizId1"}
	for i := 4; i <= 40; i++ {
		fields = append(fields, strconv.Itoa(i))
	}
	record := JoinComposite("", fields...)
	assert.Equal(t, "2-businessNo1-bizId1-4-5-6", record[:26])
	assert.Equal(t, "-39-40", record[len(record)-6:])

	composite, err := SplitComposite(record, DefaultDelimiter)
	require.NoError(t, err)
	assert.Len(t, composite, 40)
	assert.Equal(t, "2", composite.ID())
	assert.Equal(t, "businessNo1", composite.BusinessNo())

	composite, err = SplitComposite("7|no7", "|")
	require.NoError(t, err)
	assert.Equal(t, "no7", composite.BusinessNo())

	composite, err = SplitComposite("solo", "")
	require.NoError(t, err)
	assert.Equal(t, "", composite.BusinessNo())

	_, err = SplitComposite("  ", "-")
	assert.EqualError(t, err, "empty record")
}
