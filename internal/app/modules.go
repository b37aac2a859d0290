package app

import (
	"github.com/spf13/afero"
	"github.com/vk/envgridgo/internal/index"
	"github.com/vk/envgridgo/internal/registry"
	"github.com/vk/envgridgo/modules/command"
	"github.com/vk/envgridgo/modules/install"
	"github.com/vk/envgridgo/modules/lint"
)

// coreModules is the definitive list of handler modules compiled into the
// envgridgo binary.
func coreModules() []registry.Module {
	fs := afero.NewOsFs()
	return []registry.Module{
		command.NewModule(),
		install.NewModule(fs, index.New),
		lint.NewModule(fs),
	}
}
