package domain

import "path/filepath"

const (
	EntityRemisiones   = "remisiones"
	EntityCartera      = "cartera"
	EntityVencimientos = "vencimientos"
	EntityProspectos   = "prospectos"
	EntityCobros       = "cobros"
	EntitySiniestros   = "siniestros"
)

// SourceFile 记录实体键与相对源文件路径。
type SourceFile struct {
	Key  string `yaml:"key"`
	File string `yaml:"file"`
}

// DefaultSources 返回默认迁移顺序及各实体的源文件。
func DefaultSources() []SourceFile {
	return []SourceFile{
		{Key: EntityRemisiones, File: "remisiones.xlsx"},
		{Key: EntityCartera, File: filepath.Join("DATOS_CARTERA", "cartera_procesada.xlsx")},
		{Key: EntityVencimientos, File: filepath.Join("DATOS_VENCIMIENTOS", "vencimientos_procesados.xlsx")},
		{Key: EntityProspectos, File: filepath.Join("DATOS_PROSPECTOS", "prospectos.xlsx")},
		{Key: EntityCobros, File: "cobros.xlsx"},
		{Key: EntitySiniestros, File: "siniestros.xlsx"},
	}
}

// BuildMappings 将源文件列表与表名映射合成 EntityMapping，相对路径基于 baseDir。
func BuildMappings(baseDir string, sources []SourceFile, tables map[string]string) []EntityMapping {
	out := make([]EntityMapping, 0, len(sources))
	for _, src := range sources {
		path := src.File
		if path != "" && !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		out = append(out, EntityMapping{
			Key:        src.Key,
			SourcePath: path,
			Table:      tables[src.Key],
		})
	}
	return out
}
