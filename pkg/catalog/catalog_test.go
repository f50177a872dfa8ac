package catalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load()
	require.NoError(t, err)
	return c
}

func TestLoad(t *testing.T) {
	c := load(t)
	require.Equal(t, 110, c.Len())

	names := c.Names()
	assert.Equal(t, "M1", names[0])
	assert.Equal(t, "M110", names[109])
	for i, o := range c.All() {
		assert.Equal(t, i+1, o.ID)
		assert.NotEqual(t, UnknownType, o.Type, o.Name)
		assert.NotEmpty(t, o.Constellation, o.Name)
	}
}

func TestM51(t *testing.T) {
	o, ok := load(t).ByID(51)
	require.True(t, ok)

	want := Object{
		ID:            51,
		Name:          "M51",
		CommonName:    "Whirlpool Galaxy",
		Type:          Galaxy,
		Constellation: "Canes Venatici",
		RAHours:       13.497972,
		DecDeg:        47.195258,
		Magnitude:     8.4,
		SizeArcmin:    [2]float64{11.2, 6.9},
		Imaged:        true,
	}
	// the prose fields are not interesting here
	o.Description, o.BestViewed, o.DistanceKly = "", "", 0
	if diff := cmp.Diff(want, o); diff != "" {
		t.Errorf("M51 mismatch (-want +got):\n%s", diff)
	}

	assert.InDelta(t, 202.46958, o.Coord().RA, 1e-5)
	assert.InDelta(t, 47.195258, o.Coord().Dec, 1e-9)
	assert.Equal(t, 11.2, o.LargestArcmin())
	assert.Equal(t, "M51 Whirlpool Galaxy", o.Label())
	assert.True(t, o.HasMagnitude())
}

func TestByName(t *testing.T) {
	c := load(t)
	for _, name := range []string{"M51", "m51", "51", " M 51 ", "Whirlpool Galaxy", "whirlpool   galaxy"} {
		o, ok := c.ByName(name)
		if assert.True(t, ok, name) {
			assert.Equal(t, 51, o.ID, name)
		}
	}

	o, ok := c.ByName("pleiades")
	require.True(t, ok)
	assert.Equal(t, "M45", o.Name)
	assert.False(t, o.HasMagnitude())

	for _, name := range []string{"", "M0", "M111", "NGC 5194", "Whirlpool"} {
		_, ok := c.ByName(name)
		assert.False(t, ok, name)
	}
	_, ok = c.ByID(0)
	assert.False(t, ok)
}

func TestFilters(t *testing.T) {
	c := load(t)

	var imaged []string
	for _, o := range c.Imaged() {
		imaged = append(imaged, o.Name)
	}
	assert.Equal(t, []string{"M1", "M3", "M13", "M16", "M17", "M27", "M45", "M51", "M74", "M81", "M101", "M106", "M109"}, imaged)

	assert.Len(t, c.ByType(Galaxy), 40)
	assert.Len(t, c.ByType(GlobularCluster), 29)
	assert.Len(t, c.ByType(SupernovaRemnant), 1)
	assert.Empty(t, c.ByType(UnknownType))

	cv := c.ByConstellation("canes venatici")
	require.NotEmpty(t, cv)
	for _, o := range cv {
		assert.Equal(t, "Canes Venatici", o.Constellation)
	}
}

func TestCatalogIsReadOnly(t *testing.T) {
	c := load(t)
	all := c.All()
	all[0].Name = "changed"
	o, _ := c.ByID(1)
	assert.Equal(t, "M1", o.Name)
}

func TestParseObjectType(t *testing.T) {
	ty, err := ParseObjectType("Planetary Nebula")
	require.NoError(t, err)
	assert.Equal(t, PlanetaryNebula, ty)
	assert.Equal(t, "planetary_nebula", ty.String())

	_, err = ParseObjectType("quasar")
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	_, err := parse([]byte("- id: 1\n  name: M1\n  type: quasar\n"))
	assert.Error(t, err)

	_, err = parse([]byte("- id: 1\n  name: M1\n  type: galaxy\n  decdeg: 95\n"))
	assert.Error(t, err)

	_, err = parse([]byte("- id: 1\n  name: M1\n  type: galaxy\n- id: 2\n  name: m1\n  type: galaxy\n"))
	assert.ErrorContains(t, err, "duplicate")

	_, err = parse([]byte("- id: 1\n  colour: red\n"))
	assert.Error(t, err)
}
