/*
Package dbtest spins up database containers for the catalog integration
tests. It provides a higher-level interface to the testcontainers-go library
that is suitable for this repository's common case: a disposable Neo4j
instance per test.

If a test needs a specific customisation of the database, it should use the
testcontainers-go modules directly instead.

Developing locally with Docker, you may want to manually inspect the
database after a test failure. To do this, set the Inspect flag:

	go test -dbtest.inspect

This package is intended to be used in tests only. It is not suitable for
production use.
*/
package dbtest
