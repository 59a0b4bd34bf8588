// Package memory configures the Go runtime memory limit when the tracker
// runs in a container.
//
// GOMAXPROCS follows cgroup CPU limits automatically, GOMEMLIMIT does not.
// Decoded video frames live in OpenCV buffers outside the Go heap, so only
// part of the container limit is handed to the runtime.
//
// Call [ConfigureFromEnv] at the top of main:
//
//	func main() {
//	    memory.ConfigureFromEnv()
//	    // ...
//	}
//
// # Environment Variables
//
//   - GOMEMLIMIT: standard Go variable, takes precedence when set.
//   - MEMORY_LIMIT: container memory limit in bytes, usually injected
//     through the Kubernetes Downward API.
//   - MEMORY_RATIO: share of MEMORY_LIMIT for the Go heap, between 0.0
//     and 1.0. Default is 0.75.
//
// Downward API example:
//
//	env:
//	  - name: MEMORY_LIMIT
//	    valueFrom:
//	      resourceFieldRef:
//	        resource: limits.memory
package memory
