package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tomrford/mint/value"
)

func TestDataValue_Constructors_AndKind(t *testing.T) {
	assert.Equal(t, value.KindU64, value.U64(1).Kind())
	assert.Equal(t, value.KindI64, value.I64(-1).Kind())
	assert.Equal(t, value.KindF64, value.F64(1.5).Kind())
	assert.Equal(t, value.KindBool, value.Bool(true).Kind())
	assert.Equal(t, value.KindStr, value.Str("x").Kind())
}

func TestDataValue_Equal(t *testing.T) {
	assert.True(t, value.U64(5).Equal(value.U64(5)))
	assert.False(t, value.U64(5).Equal(value.U64(6)))
	assert.False(t, value.U64(5).Equal(value.I64(5)))
	assert.True(t, value.Str("a").Equal(value.Str("a")))
}

func TestDataValue_String(t *testing.T) {
	assert.Equal(t, "5", value.U64(5).String())
	assert.Equal(t, "-5", value.I64(-5).String())
	assert.Equal(t, "true", value.Bool(true).String())
	assert.Equal(t, "hi", value.Str("hi").String())
}

func TestValueSource_SingleAndArray(t *testing.T) {
	single := value.Single(value.U64(1))
	assert.Equal(t, value.SourceSingle, single.Kind())
	assert.True(t, single.AsSingle().Equal(value.U64(1)))

	arr := value.Array([]value.DataValue{value.U64(1), value.U64(2)})
	assert.Equal(t, value.SourceArray, arr.Kind())
	assert.Len(t, arr.AsArray(), 2)
}
