package hcl

import (
	"github.com/vk/envgridgo/internal/config"
	"github.com/vk/envgridgo/internal/schema"
)

// defaultMaxLineLength applies when a lint block omits max_line_length.
const defaultMaxLineLength = 79

// translateMatrix converts the merged HCL schema into the agnostic model.
func translateMatrix(mc *schema.MatrixConfig) *config.Matrix {
	m := &config.Matrix{
		EnvList: mc.Matrix.EnvList,
	}
	if mc.Defaults != nil {
		m.Defaults = &config.Defaults{
			Interpreter: mc.Defaults.Interpreter,
			Commands:    mc.Defaults.Commands,
			PassEnv:     mc.Defaults.PassEnv,
			SetEnv:      mc.Defaults.SetEnv,
			IndexURL:    mc.Defaults.IndexURL,
		}
	}
	for _, env := range mc.Environments {
		m.Environments = append(m.Environments, translateEnvironment(env))
	}
	return m
}

func translateEnvironment(s *schema.EnvironmentBlock) *config.Environment {
	env := &config.Environment{
		Name:        s.Name,
		Interpreter: s.Interpreter,
		Commands:    s.Commands,
		PassEnv:     s.PassEnv,
		SetEnv:      s.SetEnv,
		IndexURL:    s.IndexURL,
		DependsOn:   s.DependsOn,
	}
	for _, pin := range s.Pins {
		env.Pins = append(env.Pins, &config.Pin{
			Package:    pin.Package,
			Constraint: pin.Constraint,
		})
	}
	if s.Lint != nil {
		maxLen := s.Lint.MaxLineLength
		if maxLen == 0 {
			maxLen = defaultMaxLineLength
		}
		env.Lint = &config.LintRules{
			Source:        s.Lint.Source,
			Exclude:       s.Lint.Exclude,
			MaxLineLength: maxLen,
		}
	}
	return env
}
