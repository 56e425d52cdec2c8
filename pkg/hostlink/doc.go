// Package hostlink carries sensor hub frames between the bridge and a host.
//
// Every packet on a link is an encoded msgs.Frame. Towards the host a Frame
// holds one frame read from the hub with its timestamp. From the host a
// Frame holds the payload to write to the hub.
package hostlink
