// Package execshell provides typed wrappers for executing the external
// commands the hosting engine depends on: git plus the operating system
// identity toolchain (groupadd, useradd, gpasswd, chown, getent, and peers).
package execshell
