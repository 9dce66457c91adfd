package customer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(street string) *Record {
	return &Record{
		ID:        "6986e2c495150878eaff1dba",
		FirstName: "David",
		LastName:  "Hines",
		Address: Address{
			StreetNumber: "12",
			StreetName:   street,
			City:         "Springfield",
			State:        "IL",
			Zip:          "62701",
		},
	}
}

func TestNormalizeAgeAndOccupation(t *testing.T) {
	got := Normalize(record("Pine Street || Age: 68 || Occupation: Teacher"))
	require.NotNil(t, got)
	assert.Equal(t, "Pine Street", got.Address.StreetName)
	require.NotNil(t, got.Age)
	assert.Equal(t, 68, *got.Age)
	assert.Equal(t, "Teacher", got.Occupation)
}

func TestNormalizeAllKeys(t *testing.T) {
	got := Normalize(record("Ocean Dr||age:24||ROLE: Student||Citizen: India||Tax: USA||Tenure: 2.5 months||Products: Checking, Savings"))
	require.NotNil(t, got.Age)
	assert.Equal(t, 24, *got.Age)
	assert.Equal(t, "Ocean Dr", got.Address.StreetName)
	assert.Equal(t, "Student", got.Occupation)
	assert.Equal(t, "India", got.Citizenship)
	assert.Equal(t, "USA", got.TaxResidency)
	assert.Equal(t, "2.5 months", got.Tenure)
	assert.Equal(t, []string{"Checking", "Savings"}, got.Products)
}

func TestNormalizeLongKeywordForms(t *testing.T) {
	got := Normalize(record("Main St || Citizenship: Canada || TaxResidency: Canada"))
	assert.Equal(t, "Canada", got.Citizenship)
	assert.Equal(t, "Canada", got.TaxResidency)
}

func TestNormalizeBadAge(t *testing.T) {
	var got *Record
	require.NotPanics(t, func() {
		got = Normalize(record("Pine Street || Age: sixty || Occupation: Teacher"))
	})
	assert.Nil(t, got.Age)
	assert.Equal(t, "Teacher", got.Occupation)
}

func TestNormalizeProducts(t *testing.T) {
	got := Normalize(record("Pine Street || products: Checking, Savings , Credit"))
	assert.Equal(t, []string{"Checking", "Savings", "Credit"}, got.Products)

	dup := Normalize(record("Pine Street || Products: Checking,Checking, ,Savings"))
	assert.Equal(t, []string{"Checking", "Checking", "Savings"}, dup.Products)
}

func TestNormalizeEdgeCases(t *testing.T) {
	t.Run("segment without colon is ignored", func(t *testing.T) {
		got := Normalize(record("Pine Street || Teacher || Age: 40"))
		assert.Equal(t, "Pine Street", got.Address.StreetName)
		assert.Empty(t, got.Occupation)
		require.NotNil(t, got.Age)
		assert.Equal(t, 40, *got.Age)
	})

	t.Run("duplicate key keeps the last value", func(t *testing.T) {
		got := Normalize(record("Pine Street || Occupation: Teacher || Role: Principal"))
		assert.Equal(t, "Principal", got.Occupation)
	})

	t.Run("unparsable last age clears an earlier one", func(t *testing.T) {
		got := Normalize(record("Pine Street || Age: 68 || Age: sixty"))
		assert.Nil(t, got.Age)
	})

	t.Run("parsable last age replaces an unparsable one", func(t *testing.T) {
		got := Normalize(record("Pine Street || Age: sixty || Age: 61"))
		require.NotNil(t, got.Age)
		assert.Equal(t, 61, *got.Age)
	})

	t.Run("value keeps colons after the first", func(t *testing.T) {
		got := Normalize(record("Pine Street || Tenure: since 09:30 : monday "))
		assert.Equal(t, "since 09:30 : monday", got.Tenure)
	})

	t.Run("unknown keys are dropped", func(t *testing.T) {
		got := Normalize(record("Pine Street || Eyes: blue || Age: 31"))
		assert.Equal(t, "Pine Street", got.Address.StreetName)
		require.NotNil(t, got.Age)
		assert.Equal(t, 31, *got.Age)
	})

	t.Run("marker with nothing after it", func(t *testing.T) {
		got := Normalize(record("Pine Street ||"))
		assert.Equal(t, "Pine Street", got.Address.StreetName)
		assert.Equal(t, Attributes{}, got.Attributes)
	})

	t.Run("original casing preserved in values", func(t *testing.T) {
		got := Normalize(record("x || OCCUPATION: Senior VP, Risk"))
		assert.Equal(t, "Senior VP, Risk", got.Occupation)
	})
}

func TestNormalizeNil(t *testing.T) {
	assert.Nil(t, Normalize(nil))
}

func TestNormalizeIdempotent(t *testing.T) {
	plain := record("Pine Street")
	once := Normalize(plain)
	assert.Equal(t, plain, once)
	assert.Equal(t, once, Normalize(once))

	encoded := record("Pine Street || Age: 68 || Products: A, B")
	n1 := Normalize(encoded)
	n2 := Normalize(n1)
	assert.Equal(t, n1, n2)
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := record("Pine Street || Age: 68")
	_ = Normalize(in)
	assert.Equal(t, "Pine Street || Age: 68", in.Address.StreetName)
	assert.Nil(t, in.Age)
}

func TestNormalizedJSONOmitsAbsentFields(t *testing.T) {
	got := Normalize(record("Pine Street || Age: 68"))
	data, err := json.Marshal(got)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, float64(68), m["age"])
	for _, k := range []string{"occupation", "citizenship", "tenure", "products", "taxResidency"} {
		_, present := m[k]
		assert.False(t, present, "field %q should be omitted", k)
	}
	addr := m["address"].(map[string]any)
	assert.Equal(t, "Pine Street", addr["street_name"])
}

func TestNormalizeAll(t *testing.T) {
	in := []Record{*record("A || Age: 1"), *record("B")}
	out := NormalizeAll(in)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Address.StreetName)
	assert.Equal(t, "B", out[1].Address.StreetName)
	assert.Equal(t, "A || Age: 1", in[0].Address.StreetName)
}

func TestAddressString(t *testing.T) {
	assert.Equal(t, "12 Pine Street, Springfield, IL 62701", record("Pine Street").Address.String())
	assert.Equal(t, "Main St, TX", Address{StreetName: "Main St", State: "TX"}.String())
	assert.Equal(t, "", Address{}.String())
}
