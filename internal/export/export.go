package export

import (
	"github.com/rotisserie/eris"

	"github.com/blewis-maker/Katapult-Automation/internal/aggregate"
	"github.com/blewis-maker/Katapult-Automation/internal/config"
)

// Write renders layers in every requested format and returns the files
// produced.
func Write(dir string, formats []string, layers []aggregate.Layer) ([]string, error) {
	var files []string
	for _, format := range formats {
		switch format {
		case config.FormatShapefile:
			paths, err := WriteShapefiles(dir, layers)
			files = append(files, paths...)
			if err != nil {
				return files, err
			}
		case config.FormatXLSX:
			p, err := WriteWorkbook(dir, layers)
			if err != nil {
				return files, err
			}
			files = append(files, p)
		case config.FormatGeoJSON:
			paths, err := WriteGeoJSON(dir, layers)
			files = append(files, paths...)
			if err != nil {
				return files, err
			}
		default:
			return files, eris.Errorf("export: unknown format %q", format)
		}
	}
	return files, nil
}
