package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glovehome/internal/hometree"
)

func TestSingleUndoSlot(t *testing.T) {
	s := newSession(t)

	s.Toggle("/Home/Kitchen/Light", nil)
	s.Adjust("/Home/Bedroom/AC", hometree.Up)
	require.Equal(t, "50%", value(t, s, "/Home/Kitchen/Light"))
	require.Equal(t, "18°C", value(t, s, "/Home/Bedroom/AC"))

	o := s.Undo()
	assert.Equal(t, OutcomeUndo, o.Kind)
	assert.Equal(t, "OFF", value(t, s, "/Home/Bedroom/AC"))
	assert.Equal(t, "50%", value(t, s, "/Home/Kitchen/Light"), "only the latest mutation is undone")

	o = s.Undo()
	assert.Equal(t, OutcomeNone, o.Kind)
	assert.Equal(t, "Nothing to undo", o.Status)
	assert.Equal(t, "50%", value(t, s, "/Home/Kitchen/Light"))
}

func TestAdjustPercentageClamps(t *testing.T) {
	s := newSession(t)
	const light = "/Home/Kitchen/Light"

	for i := 0; i < 15; i++ {
		s.Adjust(light, hometree.Up)
	}
	assert.Equal(t, "100%", value(t, s, light))

	for i := 0; i < 10; i++ {
		s.Adjust(light, hometree.Down)
	}
	assert.Equal(t, "OFF", value(t, s, light))

	// Empty the undo slot.
	s.Toggle(light, nil)
	s.Undo()

	o := s.Adjust(light, hometree.Down)
	assert.Equal(t, OutcomeAdjust, o.Kind)
	assert.Equal(t, "Light stays at OFF", o.Status)
	assert.False(t, o.Mutated())
	assert.Equal(t, "OFF", value(t, s, light))
}

func TestUnchangedAdjustTakesUndoSlot(t *testing.T) {
	const light, fan, ac = "/Home/Kitchen/Light", "/Home/Kitchen/Fan", "/Home/Bedroom/AC"

	t.Run("off and down", func(t *testing.T) {
		s := newSession(t)
		s.Toggle(light, nil)
		o := s.Adjust(fan, hometree.Down)
		assert.Equal(t, "OFF", value(t, s, fan))
		assert.False(t, o.Mutated())

		p, ok := s.Pending()
		require.True(t, ok)
		assert.Equal(t, PendingAction{TargetPath: fan, Kind: ActionAdjust, Previous: hometree.Off}, p)

		s.Undo()
		assert.Equal(t, "50%", value(t, s, light), "the earlier toggle survives")
		assert.Equal(t, "OFF", value(t, s, fan))
	})

	t.Run("clamped at the ceiling", func(t *testing.T) {
		s := newSession(t)
		for i := 0; i < 13; i++ {
			s.Adjust(ac, hometree.Up)
		}
		require.Equal(t, "30°C", value(t, s, ac))
		s.Toggle(light, nil)

		o := s.Adjust(ac, hometree.Up)
		assert.Equal(t, OutcomeAdjust, o.Kind)
		assert.Equal(t, "AC stays at 30°C", o.Status)

		s.Undo()
		assert.Equal(t, "50%", value(t, s, light))
		assert.Equal(t, "30°C", value(t, s, ac))
	})

	t.Run("temperature floor", func(t *testing.T) {
		s := newSession(t)
		s.Adjust(ac, hometree.Up)
		s.Adjust(ac, hometree.Down)
		s.Adjust(ac, hometree.Down)
		require.Equal(t, "16°C", value(t, s, ac))
		s.Toggle(light, nil)

		s.Adjust(ac, hometree.Down)
		p, ok := s.Pending()
		require.True(t, ok)
		assert.Equal(t, ac, p.TargetPath)
		assert.Equal(t, hometree.Level(16), p.Previous)
	})
}

func TestAdjustTemperatureFloorStaysOn(t *testing.T) {
	s := newSession(t)
	const ac = "/Home/Bedroom/AC"

	o := s.Adjust(ac, hometree.Up)
	assert.Equal(t, "AC adjusted to 18°C", o.Status)
	s.Adjust(ac, hometree.Down)
	s.Adjust(ac, hometree.Down)
	s.Adjust(ac, hometree.Down)
	assert.Equal(t, "16°C", value(t, s, ac))

	for i := 0; i < 20; i++ {
		s.Adjust(ac, hometree.Up)
	}
	assert.Equal(t, "30°C", value(t, s, ac))
}

func TestAdjustSwitchIsNoop(t *testing.T) {
	s := newSession(t)
	o := s.Adjust("/Home/LivingRoom/TV", hometree.Up)
	assert.Equal(t, OutcomeNone, o.Kind)
	assert.Equal(t, "TV has no adjustable value", o.Status)
	_, pending := s.Pending()
	assert.False(t, pending)
}

func TestToggleRoundTrip(t *testing.T) {
	for _, path := range []string{"/Home/Kitchen/Light", "/Home/Kitchen/Refrigerator", "/Home/Bedroom/AC"} {
		single := newSession(t)
		single.Toggle(path, nil)
		want := value(t, single, path)

		paired := newSession(t)
		paired.Toggle(path, nil)
		paired.Undo()
		paired.Toggle(path, nil)
		assert.Equal(t, want, value(t, paired, path), path)
	}
}

func TestToggleFromOnTurnsGraduatedOff(t *testing.T) {
	s := newSession(t)
	const fan = "/Home/Kitchen/Fan"
	s.Adjust(fan, hometree.Up)
	s.Adjust(fan, hometree.Up)
	require.Equal(t, "20%", value(t, s, fan))

	s.Toggle(fan, nil)
	assert.Equal(t, "OFF", value(t, s, fan))

	s.Undo()
	assert.Equal(t, "20%", value(t, s, fan))
}

func TestForcedToggleSetsValue(t *testing.T) {
	s := newSession(t)
	v := hometree.Level(27)

	o := s.Toggle("/Home/Bedroom/AC", &v)
	assert.Equal(t, OutcomeSet, o.Kind)
	assert.Equal(t, "AC set to 27°C", o.Status)

	p, ok := s.Pending()
	require.True(t, ok)
	assert.Equal(t, PendingAction{TargetPath: "/Home/Bedroom/AC", Kind: ActionSet, Previous: hometree.Off}, p)

	bad := hometree.Level(45)
	o = s.Toggle("/Home/Bedroom/AC", &bad)
	assert.Equal(t, OutcomeNone, o.Kind)
	assert.Equal(t, "27°C", value(t, s, "/Home/Bedroom/AC"))
}

func TestToggleRejectsFoldersAndUnknownPaths(t *testing.T) {
	s := newSession(t)
	for _, path := range []string{"/Home/Kitchen", "/Home/Kitchen/Toaster", ""} {
		o := s.Toggle(path, nil)
		assert.Equal(t, OutcomeNone, o.Kind, path)
		assert.Nil(t, o.DeviceMutated, path)
	}
	_, pending := s.Pending()
	assert.False(t, pending)
}

func TestUndoWithVanishedTargetClearsSlot(t *testing.T) {
	s := newSession(t)
	s.Toggle("/Home/Kitchen/Light", nil)

	tree, err := hometree.ParseLayout([]byte("rooms:\n  - name: Garage\n"))
	require.NoError(t, err)
	s.tree = tree // swap without the reset ReplaceTree does

	o := s.Undo()
	assert.Equal(t, OutcomeNone, o.Kind)
	assert.Contains(t, o.Status, "no longer exists")
	_, pending := s.Pending()
	assert.False(t, pending)
}
