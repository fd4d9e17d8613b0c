// Package process stops a launched browser together with its helper processes.
package process
