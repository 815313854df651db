// Package cohort defines the sandbox cohort data model.
//
// A Cohort groups the sandboxes launched together for one run of a
// blueprint. Runs are identified by the pair (blueprint id, run timestamp);
// the timestamp uses TimestampLayout so that snapshot names sort and parse
// predictably:
//
//	05-12-20_221829_my-blueprint.json
//
// Snapshots are JSON arrays with one record per sandbox:
//
//	[
//	    {
//	        "sandbox_id": "...",
//	        "failed_setup_stage": null,
//	        "setup_errors": null,
//	        "teardown_errors": null
//	    }
//	]
package cohort
