package gitrepo

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/temirov/gitpartial/internal/failure"
)

const (
	pathSeparatorConstant              = "/"
	gitSuffixConstant                  = ".git"
	remoteURLRequiredMessageConstant   = "remote URL must be provided"
	hostRequiredMessageConstant        = "remote URL has no host"
	unknownProtocolTemplateConstant    = "unsupported remote protocol %q"
	remoteParseFailureTemplateConstant = "parse remote URL: %w"
	describedRemoteTemplateConstant    = "%s (%s)"
	hostAndPathTemplateConstant        = "%s/%s"
)

// RemoteProtocol enumerates supported git remote protocols.
type RemoteProtocol string

// Supported remote protocols.
const (
	RemoteProtocolSSH   RemoteProtocol = RemoteProtocol("ssh")
	RemoteProtocolHTTPS RemoteProtocol = RemoteProtocol("https")
	RemoteProtocolHTTP  RemoteProtocol = RemoteProtocol("http")
	RemoteProtocolGit   RemoteProtocol = RemoteProtocol("git")
	RemoteProtocolFile  RemoteProtocol = RemoteProtocol("file")
)

// ErrRemoteURLRequired indicates an empty remote URL.
var ErrRemoteURLRequired = errors.New(remoteURLRequiredMessageConstant)

// ErrRemoteHostRequired indicates a network remote without a host.
var ErrRemoteHostRequired = errors.New(hostRequiredMessageConstant)

// UnsupportedProtocolError indicates a remote scheme git-partial does not handle.
type UnsupportedProtocolError struct {
	Protocol string
}

// Error describes the unsupported protocol.
func (protocolError UnsupportedProtocolError) Error() string {
	return fmt.Sprintf(unknownProtocolTemplateConstant, protocolError.Protocol)
}

// RemoteDescription is the structured form of a remote URL.
type RemoteDescription struct {
	Protocol   RemoteProtocol
	Host       string
	Owner      string
	Repository string
	Path       string
}

// DescribeRemote parses remote into a RemoteDescription.
//
// Accepted forms are URLs with a supported scheme, scp-like
// "user@host:owner/repository" locations, and local paths.
func DescribeRemote(remote string) (RemoteDescription, error) {
	trimmedRemote := strings.TrimSpace(remote)
	if len(trimmedRemote) == 0 {
		return RemoteDescription{}, failure.New(failure.KindInvalidArgument, remote, ErrRemoteURLRequired)
	}

	endpoint, endpointError := transport.NewEndpoint(trimmedRemote)
	if endpointError != nil {
		return RemoteDescription{}, failure.New(failure.KindInvalidArgument, trimmedRemote, fmt.Errorf(remoteParseFailureTemplateConstant, endpointError))
	}

	protocol := RemoteProtocol(strings.ToLower(endpoint.Protocol))
	switch protocol {
	case RemoteProtocolSSH, RemoteProtocolHTTPS, RemoteProtocolHTTP, RemoteProtocolGit:
		if len(endpoint.Host) == 0 {
			return RemoteDescription{}, failure.New(failure.KindInvalidArgument, trimmedRemote, ErrRemoteHostRequired)
		}
	case RemoteProtocolFile:
	default:
		return RemoteDescription{}, failure.New(failure.KindInvalidArgument, trimmedRemote, UnsupportedProtocolError{Protocol: endpoint.Protocol})
	}

	owner, repository := splitOwnerAndRepository(endpoint.Path)
	return RemoteDescription{
		Protocol:   protocol,
		Host:       endpoint.Host,
		Owner:      owner,
		Repository: repository,
		Path:       endpoint.Path,
	}, nil
}

// String renders the description as "<host>/<path> (<protocol>)", or "<path> (file)" for local remotes.
func (description RemoteDescription) String() string {
	location := description.Path
	if len(description.Host) > 0 {
		location = fmt.Sprintf(hostAndPathTemplateConstant, description.Host, strings.TrimPrefix(description.Path, pathSeparatorConstant))
	}
	return fmt.Sprintf(describedRemoteTemplateConstant, location, description.Protocol)
}

func splitOwnerAndRepository(remotePath string) (string, string) {
	trimmedPath := strings.Trim(remotePath, pathSeparatorConstant)
	if len(trimmedPath) == 0 {
		return "", ""
	}
	repository := strings.TrimSuffix(path.Base(trimmedPath), gitSuffixConstant)
	owner := path.Dir(trimmedPath)
	if owner == "." {
		owner = ""
	}
	return owner, repository
}
