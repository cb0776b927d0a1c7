// Package loader obtains the solver module exactly once per process.
//
// # State Machine
//
//	Unloaded --Load--> Loading --ok--> Ready
//	                      |
//	                      +--err--> Failed --Load--> Loading
//
//	Ready/Failed/Unloaded --Reset--> Unloaded
//
// A Load in Unloaded or Failed starts one attempt; every Load that arrives
// while it runs waits on the same attempt. A waiter's context only bounds its
// own wait: the attempt keeps running under a detached context and a later
// Load receives its result.
//
// An attempt looks the factory up in the registry. When it is absent the
// bootstrapper fetches the artifact and registers it, the factory is looked
// up again and invoked, and the bootstrap side effects are detached. A
// failing detach is logged and does not fail the load.
package loader
