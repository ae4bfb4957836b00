// Package testsupport provides gateway stubs and real-git repository fixtures shared by command tests.
package testsupport
