package utils_test

import (
	"testing"

	"github.com/jrsteele09/go-crud-session/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	require.Equal(t, "", utils.Value[string](nil))
	require.Equal(t, "refresh-1", utils.Value(utils.Ptr("refresh-1")))
}

func TestPtrIfSet(t *testing.T) {
	require.Nil(t, utils.PtrIfSet(""))
	require.Nil(t, utils.PtrIfSet(0))
	require.Equal(t, "id-token", *utils.PtrIfSet("id-token"))
}
