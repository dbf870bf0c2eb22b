// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	NetworkErrorId Id = iota + 1
	HTTPStatusErrorId
	InvalidURLId
	DecompressionFailedId
	ArchiveInvalidId
	UnsafeArchiveEntryId
	ArchiveTooLargeId
	DestinationExistsId
	NotDirectoryId
	FilesystemErrorId
	PermissionDeniedId
	ConfigLoadFailedId
	InvalidConfigId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // reference documentation for the failing layer
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("\n- <" + string(link) + ">")
		}
		for _, link := range i.extLinks {
			md.WriteString("\n- <" + string(link) + ">")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	networkErrorIssue = &Issue{
		id: NetworkErrorId,
		mdMsg: `
# The download did not complete

The server could not be reached, or the connection broke while the archive
was being transferred. Nothing was extracted from a partial download.

## Things you can try
- Check that the host name resolves and the server is up:
~~~
$ curl -I https://example.com/release.tar.gz
~~~
- Retry the command; interrupted transfers are often transient.
- Raise the request timeout if the archive is large:
~~~
$ fetchunroll get --timeout 30m <url> <dir>
~~~
- Behind a proxy, export ` + "`HTTPS_PROXY`" + ` before running the command.`,
		docLinks: []HttpLink{"https://pkg.go.dev/net/http#ProxyFromEnvironment"},
	}

	httpStatusErrorIssue = &Issue{
		id: HTTPStatusErrorId,
		mdMsg: `
# The server refused the request

The server answered, but with a status code outside the 2xx range.

## Common causes
- **404 Not Found**: the release or file name in the URL is wrong.
- **401 / 403**: the resource needs credentials or is not public.
- **429 / 5xx**: the server is overloaded; waiting and retrying usually works.

## Things you can try
- Open the URL in a browser to confirm it points at a ` + "`.tar.gz`" + ` file.
- Send extra headers when the server needs them:
~~~
$ fetchunroll get -H "Authorization: Bearer $TOKEN" <url> <dir>
~~~`,
		docLinks: []HttpLink{"https://developer.mozilla.org/en-US/docs/Web/HTTP/Status"},
	}

	invalidURLIssue = &Issue{
		id: InvalidURLId,
		mdMsg: `
# The URL cannot be fetched

Only absolute ` + "`http://`" + ` and ` + "`https://`" + ` URLs are supported, and
redirects must stay on those schemes.

## Things you can try
- Quote the URL so the shell does not split it at ` + "`&`" + ` or ` + "`?`" + `.
- Use ` + "`fetchunroll unroll <file> <dir>`" + ` for archives already on disk.`,
	}

	decompressionFailedIssue = &Issue{
		id: DecompressionFailedId,
		mdMsg: `
# The payload is not valid gzip

The downloaded bytes could not be decompressed. The destination directory was
not touched.

## Common causes
- The URL returned an HTML page (a login or error page) instead of the archive.
- The file is a plain ` + "`.tar`" + `, a ` + "`.zip`" + ` or ` + "`.tar.xz`" + ` archive.
- The download was truncated by a proxy.

## Things you can try
~~~
$ curl -sL <url> | file -
~~~`,
		docLinks: []HttpLink{"https://pkg.go.dev/compress/gzip"},
	}

	archiveInvalidIssue = &Issue{
		id: ArchiveInvalidId,
		mdMsg: `
# The tar stream is malformed

The payload decompressed correctly, but the tar data inside it is corrupt or
truncated. Entries extracted before the failure are left in place unless
` + "`cleanup_on_error`" + ` is enabled.

## Things you can try
- Download the archive again and compare its checksum with the published one.
- Enable cleanup so failed extractions leave nothing behind:
~~~
$ fetchunroll get --cleanup-on-error <url> <dir>
~~~`,
		docLinks: []HttpLink{"https://pkg.go.dev/archive/tar"},
	}

	unsafeArchiveEntryIssue = &Issue{
		id: UnsafeArchiveEntryId,
		mdMsg: `
# The archive contains an unsafe entry

An entry would have been written outside the destination directory, either
through a ` + "`..`" + ` path segment or through a link. Extraction stopped at that
entry.

## Things you can try
- Inspect the archive before trusting it:
~~~
$ tar -tzvf archive.tar.gz
~~~
- Archives that use links can be extracted with ` + "`--symlinks skip`" + `, which
  drops link entries and keeps regular files.`,
		extLinks: []HttpLink{"https://security.snyk.io/research/zip-slip-vulnerability"},
	}

	archiveTooLargeIssue = &Issue{
		id: ArchiveTooLargeId,
		mdMsg: `
# The archive is larger than allowed

The decompressed size went over the configured limit.

## Things you can try
- Raise the limit if the archive is trusted:
~~~
$ fetchunroll get --max-bytes 8GiB <url> <dir>
~~~`,
	}

	destinationExistsIssue = &Issue{
		id: DestinationExistsId,
		mdMsg: `
# The destination already exists

A file in the archive, or the save target, is already present and overwriting
is disabled.

## Things you can try
- Allow overwriting:
~~~
$ fetchunroll get --overwrite <url> <dir>
~~~
- Or pick an empty destination directory.`,
	}

	notDirectoryIssue = &Issue{
		id: NotDirectoryId,
		mdMsg: `
# The destination is not a directory

The destination path, or one of the directories the archive needs, exists as a
file.

## Things you can try
- Remove or rename the file.
- Let fetchunroll replace it:
~~~
$ fetchunroll get --fix-invalid-dest <url> <dir>
~~~`,
	}

	filesystemErrorIssue = &Issue{
		id: FilesystemErrorId,
		mdMsg: `
# A filesystem operation failed

Creating, writing or removing a file under the destination failed.

## Things you can try
- Check the free space on the target volume:
~~~
$ df -h <dir>
~~~
- Make sure no other process holds the files open.`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied

The current user may not write to the destination.

## Things you can try
- Check the directory permissions:
~~~
$ ls -ld <dir>
~~~
- Choose a destination under your home directory.`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# The configuration file could not be loaded

The file exists but could not be read or parsed.

## Things you can try
- Show where fetchunroll looks for its configuration:
~~~
$ fetchunroll config path
~~~
- Write a fresh default file and edit it:
~~~
$ fetchunroll config init --force
~~~`,
		docLinks: []HttpLink{"https://cuelang.org/docs/", "https://toml.io/en/v1.0.0"},
	}

	invalidConfigIssue = &Issue{
		id: InvalidConfigId,
		mdMsg: `
# The configuration has invalid values

A setting in the configuration file or environment is outside its allowed
range.

## Example configuration
~~~cue
http: {
	backend:       "http2"
	timeout:       "10m"
	max_redirects: 5
}
unroll: {
	strip_components: 1
	symlinks:         "skip"
}
~~~

Environment variables use the ` + "`FETCHUNROLL_`" + ` prefix, e.g.
` + "`FETCHUNROLL_UNROLL_STRIP_COMPONENTS=1`" + `.`,
	}

	issues = map[Id]*Issue{
		networkErrorIssue.Id():        networkErrorIssue,
		httpStatusErrorIssue.Id():     httpStatusErrorIssue,
		invalidURLIssue.Id():          invalidURLIssue,
		decompressionFailedIssue.Id(): decompressionFailedIssue,
		archiveInvalidIssue.Id():      archiveInvalidIssue,
		unsafeArchiveEntryIssue.Id():  unsafeArchiveEntryIssue,
		archiveTooLargeIssue.Id():     archiveTooLargeIssue,
		destinationExistsIssue.Id():   destinationExistsIssue,
		notDirectoryIssue.Id():        notDirectoryIssue,
		filesystemErrorIssue.Id():     filesystemErrorIssue,
		permissionDeniedIssue.Id():    permissionDeniedIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		invalidConfigIssue.Id():       invalidConfigIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
