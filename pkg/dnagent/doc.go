/*
Package dnagent is a simulated datanode client: it registers with a
*registry.Registry and then runs the same heartbeat/report loop a real
Ozone-style datanode would, adapted from the teacher's worker
heartbeat loop. Transport is out of scope for this repository (see
spec.md's Non-goals), so Agent calls the Registry's Go API directly
rather than over gRPC — it exists for integration tests and the
cmd/scmd demo subcommand, not as a production datanode.
*/
package dnagent
