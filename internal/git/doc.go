// Package git publishes the generated site by committing the output and state
// trees and pushing them to a remote.
//
// Two backends implement Publisher:
//   - CLIPublisher runs the git command line tool in the base directory
//   - GoGitPublisher performs the same steps in process with go-git
//
// NoopPublisher stands in when publishing is disabled. Publishing never
// retries; a failure is reported in Result.Err and the caller decides what
// to do with it.
package git
