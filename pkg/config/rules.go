package config

import (
	"fmt"

	"github.com/spf13/viper"

	"stockledger/internal/core/apperror"
	"stockledger/internal/domain/ledger"
)

// RulesFile is the shape of a rules file:
//
//	replaceBuiltins: false
//	contexts:
//	  - name: finished_goods
//	    split: true
//	    bulkUnits: [طن, صب]
//	    rules:
//	      - {name: daily-count, bucket: dailyCount, keywords: [جرد يومي]}
//	      - {name: scrap, bucket: shortageAllowed, when: 'text.contains("هالك")'}
type RulesFile struct {
	// ReplaceBuiltins drops the built-in contexts instead of overlaying them.
	ReplaceBuiltins bool                 `mapstructure:"replaceBuiltins"`
	Contexts        []ledger.ContextSpec `mapstructure:"contexts"`
}

// LoadRulesFile reads a YAML or JSON rules file; the extension picks the format.
func LoadRulesFile(path string) (RulesFile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return RulesFile{}, apperror.NewConfiguration(fmt.Sprintf("read rules file %s", path)).WithCause(err)
	}
	var rf RulesFile
	if err := v.Unmarshal(&rf); err != nil {
		return RulesFile{}, apperror.NewConfiguration(fmt.Sprintf("decode rules file %s", path)).WithCause(err)
	}
	return rf, nil
}

// LoadRegistry compiles the built-in contexts overlaid with the rules file,
// if one is configured. A context in the file replaces the built-in of the
// same name. Every table is validated here, before the first request.
func (c LedgerConfig) LoadRegistry() (*ledger.Registry, error) {
	specs := ledger.DefaultContexts()
	if c.RulesFile != "" {
		rf, err := LoadRulesFile(c.RulesFile)
		if err != nil {
			return nil, err
		}
		if rf.ReplaceBuiltins {
			specs = nil
		}
		specs = append(specs, rf.Contexts...)
	}
	reg, err := ledger.NewRegistry(specs...)
	if err != nil {
		return nil, err
	}
	if c.DefaultContext != "" {
		if _, ok := reg.Get(c.DefaultContext); !ok {
			return nil, apperror.NewConfiguration(fmt.Sprintf("LEDGER_DEFAULT_CONTEXT %q is not a loaded context", c.DefaultContext))
		}
	}
	return reg, nil
}
