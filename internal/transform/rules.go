package transform

import "excel2dataverse/internal/domain"

// RemisionesRules 是 remisiones 的布尔与日期字段。
var RemisionesRules = Rules{
	BoolFields: []string{
		"renovacion",
		"negocio_nuevo",
		"renovable",
		"modificacion",
		"anexo_checkbox",
		"policy_number_modified",
	},
	DateFields: []string{
		"fecha_recepcion",
		"fecha_inicio",
		"fecha_fin",
		"fecha_limite_pago",
		"fecha_registro",
	},
}

// ProspectosRules 把列名改成目标表的列名，并由 es_tpp 派生 es_TPP。
var ProspectosRules = Rules{
	Renames: map[string]string{
		"nombre_cliente":        "NombreCliente",
		"responsable_tecnico":   "ResponsableTecnico",
		"responsable_comercial": "ResponsableComercial",
		"fecha_de_cotizacion":   "Fecha_de_Cotizacion",
		"fecha_inicio_poliza":   "Fecha_inicio_poliza",
		"comision_porcentaje":   "Comision_porcentaje",
		"comision_monto":        "Comision_monto",
		"fecha_creacion":        "FechaCreacion",
	},
	Derived: []Derived{{Target: "es_TPP", Source: "es_tpp"}},
}

// DefaultRegistry 注册内置实体的清洗策略。
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(domain.EntityRemisiones, RemisionesRules)
	r.Register(domain.EntityProspectos, ProspectosRules)
	return r
}
