// Package gateway owns the network listeners of edgegate: the public
// listener running the request pipeline and the operations listener for
// probes, metrics and the audit listing.
package gateway
