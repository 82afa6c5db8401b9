// Package simulation runs complete translocation experiments: it builds the
// pore, field and domains from a configuration, walks the ensemble to
// completion, and hands the finalized outcomes to the run store and the
// columnar export.
//
// Usage:
//
//	r := simulation.NewRunner(store, simulation.WithLogger(logger))
//	report, err := r.Run(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(report.RunID, report.Result.Summary.Succeeded)
//
// Scenarios are named, ready-made configurations (see Scenarios).
package simulation
