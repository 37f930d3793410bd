// Package config loads and queries the lifecycle configuration
// (flowspec_workflow.yml): states, transitions, workflows, meta-workflows,
// quality gates and the v2.0 role and agent-loop metadata.
//
// A Config is immutable once built. Every accessor returns a copy, so one
// Config can be shared by concurrent orchestrator runs.
//
//	cfg, err := config.Load("flowspec_workflow.yml")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    for _, v := range domain.ValidationErrors(err) {
//	        fmt.Println(v)
//	    }
//	}
//	research, err := cfg.MetaWorkflow("research")
package config
