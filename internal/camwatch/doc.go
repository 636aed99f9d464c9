// Package camwatch waits for a gphoto2-capable camera to appear on USB by
// listening to udev netlink events.
package camwatch
