package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Name     string `form:"nombre" label:"El nombre" validate:"required"`
	Email    string `form:"email" label:"El email" validate:"required,email"`
	Password string `form:"password" label:"El password" validate:"required,min=6"`
	Repeat   string `form:"repetir_password" label:"El password" validate:"eqfield=Password"`
}

type rooms struct {
	Rooms *int     `form:"habitaciones" label:"Las habitaciones" validate:"required,min=1,max=10"`
	Lat   *float64 `form:"lat" label:"La latitud" validate:"required,latitude"`
}

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func TestValidator_ValidStruct(t *testing.T) {
	v := New()

	errs := v.Struct(signup{Name: "Alice", Email: "alice@example.com", Password: "secret1", Repeat: "secret1"})
	assert.Nil(t, errs)
}

func TestValidator_CollectsAllViolations(t *testing.T) {
	v := New()

	errs := v.Struct(signup{Name: "", Email: "not-an-email", Password: "123", Repeat: "456"})
	require.NotNil(t, errs)

	assert.Equal(t, "El nombre es obligatorio", errs.First("nombre"))
	assert.Equal(t, "El email no es válido", errs.First("email"))
	assert.Equal(t, "El password debe tener al menos 6 caracteres", errs.First("password"))
	assert.Equal(t, "El password no coincide", errs.First("repetir_password"))
	assert.Len(t, errs.Messages(), 4)
}

func TestValidator_NumericRanges(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		input   rooms
		field   string
		message string
	}{
		{"missing rooms", rooms{Lat: floatPtr(19.4)}, "habitaciones", "Las habitaciones es obligatorio"},
		{"too few rooms", rooms{Rooms: intPtr(0), Lat: floatPtr(19.4)}, "habitaciones", "Las habitaciones debe ser como mínimo 1"},
		{"too many rooms", rooms{Rooms: intPtr(11), Lat: floatPtr(19.4)}, "habitaciones", "Las habitaciones debe ser como máximo 10"},
		{"bad latitude", rooms{Rooms: intPtr(2), Lat: floatPtr(120)}, "lat", "Ubica la propiedad en el mapa"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.Struct(tt.input)
			require.NotNil(t, errs)
			assert.True(t, errs.Has(tt.field))
			assert.Equal(t, tt.message, errs.First(tt.field))
		})
	}
}

func TestErrors_Add(t *testing.T) {
	errs := Errors{}
	errs.Add("categoria", "Selecciona una categoría")
	errs.Add("categoria", "Otra")

	assert.True(t, errs.Has("categoria"))
	assert.False(t, errs.Has("precio"))
	assert.Equal(t, "Selecciona una categoría", errs.First("categoria"))
	assert.Equal(t, "", errs.First("precio"))
	assert.Equal(t, []string{"Selecciona una categoría", "Otra"}, errs.Messages())
}
