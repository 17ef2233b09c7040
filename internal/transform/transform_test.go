package transform

import (
	"testing"
	"time"

	"excel2dataverse/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeColumn(t *testing.T) {
	assert.Equal(t, "nombre_cliente", NormalizeColumn("Nombre Cliente"))
	assert.Equal(t, "prima_monto", NormalizeColumn("Prima $"))
	assert.Equal(t, "comision_porcentaje", NormalizeColumn("Comision %"))
	assert.Equal(t, "fecha_recepci\u00f3n", NormalizeColumn("Fecha Recepcio\u0301n"))
}

func TestCleanBool(t *testing.T) {
	for _, v := range []any{"Si", "SI", "si", "sI"} {
		assert.True(t, CleanBool(v), v)
	}
	for _, v := range []any{"No", "", " si", "yes", nil, true, int64(1)} {
		assert.False(t, CleanBool(v), v)
	}
}

func TestCleanDate(t *testing.T) {
	cases := []struct {
		in   any
		want any
	}{
		{"2024-03-05", "2024-03-05"},
		{"2024-03-05 10:30:00", "2024-03-05"},
		{"03/05/2024", "2024-03-05"},
		{"3/5/2024", "2024-03-05"},
		{"03-05-24", "2024-03-05"},
		{int64(45356), "2024-03-05"},
		{45356.5, "2024-03-05"},
		{time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), "2023-12-31"},
		{"not a date", nil},
		{"", nil},
		{nil, nil},
		{int64(-3), nil},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CleanDate(c.in), "%v", c.in)
	}
}

func TestRemisionesRules(t *testing.T) {
	row := domain.Row{
		"Renovacion":    "Si",
		"Negocio Nuevo": "no",
		"Renovable":     nil,
		"Fecha Inicio":  "2024-01-15",
		"Fecha Fin":     "basura",
		"Poliza":        "P-1",
		"Prima $":       float64(10),
	}
	out := DefaultRegistry().Clean(domain.EntityRemisiones, row)

	assert.Equal(t, domain.Row{
		"renovacion":    true,
		"negocio_nuevo": false,
		"renovable":     false,
		"fecha_inicio":  "2024-01-15",
		"fecha_fin":     nil,
		"poliza":        "P-1",
		"prima_monto":   float64(10),
	}, out)
	assert.Equal(t, "Si", row["Renovacion"])
}

func TestProspectosRules(t *testing.T) {
	row := domain.Row{
		"Nombre Cliente":      "ACME",
		"Responsable Tecnico": "Ana",
		"Comision %":          float64(12.5),
		"Comision $":          int64(300),
		"Fecha Creacion":      "2024-02-01",
		"Es TPP":              "SI",
	}
	out := DefaultRegistry().Clean(domain.EntityProspectos, row)

	assert.Equal(t, domain.Row{
		"NombreCliente":       "ACME",
		"ResponsableTecnico":  "Ana",
		"Comision_porcentaje": float64(12.5),
		"Comision_monto":      int64(300),
		"FechaCreacion":       "2024-02-01",
		"es_tpp":              "SI",
		"es_TPP":              true,
	}, out)
}

func TestUnregisteredEntityOnlyNormalizes(t *testing.T) {
	out := DefaultRegistry().Clean(domain.EntityCartera, domain.Row{"Renovacion": "Si", "Saldo $": int64(4)})
	assert.Equal(t, domain.Row{"renovacion": "Si", "saldo_monto": int64(4)}, out)
}

func TestRegistryOverride(t *testing.T) {
	r := NewRegistry()
	r.Register("x", CleanerFunc(func(row domain.Row) domain.Row {
		return domain.Row{"n": len(row)}
	}))
	assert.Equal(t, domain.Row{"n": 2}, r.Clean("x", domain.Row{"a": 1, "b": 2}))
}
