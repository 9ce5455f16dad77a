// Package manifest loads the Kubernetes or OpenShift manifests produced by the host
// build and prepares them for inclusion as chart templates.
package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/chartgen/chart-gen-scripts/pkg/filesystem"
	"github.com/chartgen/chart-gen-scripts/pkg/logger"
	"github.com/chartgen/chart-gen-scripts/pkg/wait"
	"github.com/go-git/go-billy/v5"
	yamlV3 "gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"
)

// workloadKinds are the kinds that receive readiness-wait init containers at
// spec.template.spec.initContainers
var workloadKinds = map[string]bool{
	"Deployment":  true,
	"StatefulSet": true,
	"DaemonSet":   true,
	"Job":         true,
}

var podSpecPath = []string{"spec", "template", "spec"}

// LoadDir reads every .yaml/.yml file under dirpath, splits multi-document streams and
// decodes each document. Documents are returned in walk order so output is deterministic.
func LoadDir(ctx context.Context, fs billy.Filesystem, dirpath string) ([]*unstructured.Unstructured, error) {
	var objects []*unstructured.Unstructured
	collect := func(ctx context.Context, fs billy.Filesystem, path string, isDir bool) error {
		if isDir {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		docs, err := loadFile(ctx, fs, path)
		if err != nil {
			return fmt.Errorf("encountered error while loading manifest %s: %s", path, err)
		}
		objects = append(objects, docs...)
		return nil
	}
	if err := filesystem.WalkDir(ctx, fs, dirpath, collect); err != nil {
		return nil, err
	}
	logger.Log(ctx, slog.LevelInfo, "loaded manifests", slog.String("dirpath", dirpath), slog.Int("count", len(objects)))
	return objects, nil
}

func loadFile(ctx context.Context, fs billy.Filesystem, path string) ([]*unstructured.Unstructured, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	contents, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return Parse(ctx, contents)
}

// Parse splits a multi-document YAML stream and decodes every non-empty document.
// Each document is re-encoded and decoded through sigs.k8s.io/yaml so every value
// carries a JSON-compatible type, which the unstructured helpers require.
func Parse(ctx context.Context, contents []byte) ([]*unstructured.Unstructured, error) {
	var objects []*unstructured.Unstructured
	decoder := yamlV3.NewDecoder(bytes.NewReader(contents))
	for {
		var doc yamlV3.Node
		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		docBytes, err := yamlV3.Marshal(&doc)
		if err != nil {
			return nil, err
		}
		var raw map[string]interface{}
		if err := yaml.Unmarshal(docBytes, &raw); err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			continue
		}
		obj := &unstructured.Unstructured{Object: raw}
		if obj.GetKind() == "" {
			logger.Log(ctx, slog.LevelWarn, "skipping document without a kind")
			continue
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// InjectInitContainers embeds the resolved init containers into every workload object,
// replacing any init container with the same name so regeneration is idempotent.
// The declared order of initContainers is preserved.
func InjectInitContainers(ctx context.Context, objects []*unstructured.Unstructured, initContainers []wait.InitContainer) error {
	if len(initContainers) == 0 {
		return nil
	}
	for _, obj := range objects {
		if !workloadKinds[obj.GetKind()] {
			continue
		}
		if err := injectIntoWorkload(obj, initContainers); err != nil {
			return fmt.Errorf("encountered error while injecting init containers into %s %s: %s", obj.GetKind(), obj.GetName(), err)
		}
		logger.Log(ctx, slog.LevelDebug, "injected init containers",
			slog.String("kind", obj.GetKind()), slog.String("name", obj.GetName()), slog.Int("count", len(initContainers)))
	}
	return nil
}

func injectIntoWorkload(obj *unstructured.Unstructured, initContainers []wait.InitContainer) error {
	fieldPath := append(podSpecPath, "initContainers")
	existing, _, err := unstructured.NestedSlice(obj.Object, fieldPath...)
	if err != nil {
		return err
	}

	for _, initContainer := range initContainers {
		entry := map[string]interface{}{
			"name":    initContainer.Name,
			"image":   initContainer.Image,
			"command": []interface{}{"sh", "-c", initContainer.Command},
		}
		replaced := false
		for i, item := range existing {
			container, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if container["name"] == initContainer.Name {
				existing[i] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, entry)
		}
	}

	return unstructured.SetNestedSlice(obj.Object, existing, fieldPath...)
}

// Images returns every container image referenced by the workload objects, including
// init containers, without duplicates and in first-seen order
func Images(objects []*unstructured.Unstructured) []string {
	var images []string
	seen := map[string]bool{}
	appendImages := func(containers []interface{}) {
		for _, item := range containers {
			container, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			image, ok := container["image"].(string)
			if !ok || image == "" || seen[image] {
				continue
			}
			seen[image] = true
			images = append(images, image)
		}
	}
	for _, obj := range objects {
		if !workloadKinds[obj.GetKind()] {
			continue
		}
		containers, _, _ := unstructured.NestedSlice(obj.Object, "spec", "template", "spec", "containers")
		appendImages(containers)
		initContainers, _, _ := unstructured.NestedSlice(obj.Object, "spec", "template", "spec", "initContainers")
		appendImages(initContainers)
	}
	return images
}

// TemplateFilename derives the deterministic templates/ filename for an object
func TemplateFilename(obj *unstructured.Unstructured) string {
	kind := strings.ToLower(obj.GetKind())
	name := strings.ToLower(obj.GetName())
	if name == "" {
		return kind + ".yaml"
	}
	return fmt.Sprintf("%s-%s.yaml", kind, name)
}

// Marshal renders an object back to YAML for writing into templates/
func Marshal(obj *unstructured.Unstructured) ([]byte, error) {
	return yaml.Marshal(obj.Object)
}
