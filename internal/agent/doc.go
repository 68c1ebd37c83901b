// Package agent contains the gateway's core (non-HTTP) logic.
//
// It resolves the agent definition into a runtime (model, bound tools, system
// prompt and step budget) and runs invocations against it as text streams.
package agent
