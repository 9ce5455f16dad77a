// Package wait resolves a dependency's waitForService declaration into the
// init container that blocks pod startup until the target service is reachable.
package wait

import (
	"fmt"
	"strings"

	"github.com/chartgen/chart-gen-scripts/pkg/options"
)

const (
	placeholderServiceName = "::service-name"
	placeholderServicePort = "::service-port"

	initContainerNamePrefix = "wait-for-"
)

// InitContainer is the specification handed to the manifest generator for embedding
// into a workload's init-containers list
type InitContainer struct {
	// Name is derived from the target service name so regeneration is idempotent
	Name string
	// Image is the container image running the readiness probe
	Image string
	// Command is the fully substituted shell command; callers wrap it as `sh -c <command>`
	Command string
}

// Resolve converts a dependency's waitForService declaration into an InitContainer.
//
// The value is split on the first ':'; the left part is the service name and the
// right part, if any, is the port. An empty port segment ("svc:") is treated as
// absent and falls back to the name-only command template. A value with no service
// name (":5432") produces no init container.
//
// Resolve is pure: the same dependency always yields the same result and no
// placeholder remains in the returned command.
func Resolve(dep options.DependencyOptions) (*InitContainer, error) {
	if dep.WaitForService == "" {
		return nil, nil
	}

	serviceName, servicePort := splitServicePort(dep.WaitForService)
	if serviceName == "" {
		// Recoverable misconfiguration; the caller decides whether to warn
		return nil, nil
	}

	template := dep.WaitForServiceOnlyCommandTemplate
	if servicePort != "" {
		template = dep.WaitForServicePortCommandTemplate
	}
	if template == "" {
		return nil, fmt.Errorf("no wait-for-service command template configured for service %s", serviceName)
	}

	command := strings.ReplaceAll(template, placeholderServiceName, serviceName)
	if servicePort != "" {
		command = strings.ReplaceAll(command, placeholderServicePort, servicePort)
	}

	image := dep.WaitForServiceImage
	if image == "" {
		image = options.DefaultWaitForServiceImage
	}

	return &InitContainer{
		Name:    initContainerNamePrefix + sanitizeName(serviceName),
		Image:   image,
		Command: command,
	}, nil
}

// splitServicePort splits a waitForService value on the first ':' only; any further
// colons stay part of the port value, whose syntax is validated downstream
func splitServicePort(value string) (string, string) {
	name, port, found := strings.Cut(value, ":")
	if !found {
		return value, ""
	}
	return name, port
}

// sanitizeName lowers the service name into a DNS-1123 friendly container name
func sanitizeName(name string) string {
	name = strings.ToLower(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	sanitized := strings.Trim(b.String(), "-")
	if sanitized == "" {
		// A name with no usable runes still needs a valid container name
		return "service"
	}
	return sanitized
}
