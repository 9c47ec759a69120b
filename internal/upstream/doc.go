// Package upstream provides the handler that receives requests accepted by
// the pipeline: a reverse proxy to the application, or an echo handler that
// reports the resolved tenant and credentials when no application is
// configured.
package upstream
