// Package dbus exposes the chimed decision engine on the session bus as the
// io.github.jmylchreest.Chime interface.
package dbus
