package manifest

import (
	"context"
	"testing"

	"github.com/chartgen/chart-gen-scripts/pkg/wait"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

const multiDocManifest = `apiVersion: apps/v1
kind: Deployment
metadata:
  name: demo
spec:
  template:
    spec:
      containers:
        - name: demo
          image: quay.io/demo/demo:1.0.0
---
apiVersion: v1
kind: ConfigMap
metadata:
  name: demo-config
data:
  key: value
---
# a comment-only document should be skipped

---
apiVersion: v1
kind: Service
metadata:
  name: demo
`

func TestParse(t *testing.T) {
	objects, err := Parse(context.Background(), []byte(multiDocManifest))
	require.NoError(t, err)
	require.Len(t, objects, 3)
	assert.Equal(t, "Deployment", objects[0].GetKind())
	assert.Equal(t, "ConfigMap", objects[1].GetKind())
	assert.Equal(t, "Service", objects[2].GetKind())
}

func TestParseKeepsSeparatorLookalikes(t *testing.T) {
	manifest := `apiVersion: v1
kind: ConfigMap
metadata:
  name: demo-banner
data:
  banner: |
    ----
    --- welcome ---
    ----
---
apiVersion: v1
kind: Service
metadata:
  name: demo
`
	objects, err := Parse(context.Background(), []byte(manifest))
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "ConfigMap", objects[0].GetKind())

	banner, found, err := unstructured.NestedString(objects[0].Object, "data", "banner")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "----\n--- welcome ---\n----\n", banner)
	assert.Equal(t, "Service", objects[1].GetKind())
}

func TestInjectInitContainers(t *testing.T) {
	ctx := context.Background()
	objects, err := Parse(ctx, []byte(multiDocManifest))
	require.NoError(t, err)

	initContainers := []wait.InitContainer{
		{Name: "wait-for-demo-db", Image: "busybox:1.34.1", Command: "nc -z demo-db 5432"},
	}
	require.NoError(t, InjectInitContainers(ctx, objects, initContainers))

	injected, found, err := unstructured.NestedSlice(objects[0].Object, "spec", "template", "spec", "initContainers")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, injected, 1)
	container := injected[0].(map[string]interface{})
	assert.Equal(t, "wait-for-demo-db", container["name"])
	assert.Equal(t, []interface{}{"sh", "-c", "nc -z demo-db 5432"}, container["command"])

	// non-workload objects stay untouched
	_, found, err = unstructured.NestedSlice(objects[1].Object, "spec", "template", "spec", "initContainers")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInjectInitContainersReplacesByName(t *testing.T) {
	ctx := context.Background()
	objects, err := Parse(ctx, []byte(multiDocManifest))
	require.NoError(t, err)

	first := []wait.InitContainer{{Name: "wait-for-db", Image: "busybox:1.34.1", Command: "old"}}
	require.NoError(t, InjectInitContainers(ctx, objects, first))
	second := []wait.InitContainer{{Name: "wait-for-db", Image: "busybox:1.34.1", Command: "new"}}
	require.NoError(t, InjectInitContainers(ctx, objects, second))

	injected, _, err := unstructured.NestedSlice(objects[0].Object, "spec", "template", "spec", "initContainers")
	require.NoError(t, err)
	require.Len(t, injected, 1, "re-injection should replace, not append")
	container := injected[0].(map[string]interface{})
	assert.Equal(t, []interface{}{"sh", "-c", "new"}, container["command"])
}

func TestImages(t *testing.T) {
	ctx := context.Background()
	objects, err := Parse(ctx, []byte(multiDocManifest))
	require.NoError(t, err)

	initContainers := []wait.InitContainer{
		{Name: "wait-for-demo-db", Image: "busybox:1.34.1", Command: "nc -z demo-db 5432"},
	}
	require.NoError(t, InjectInitContainers(ctx, objects, initContainers))

	images := Images(objects)
	assert.Equal(t, []string{"quay.io/demo/demo:1.0.0", "busybox:1.34.1"}, images)

	// duplicates collapse
	require.NoError(t, InjectInitContainers(ctx, objects, initContainers))
	assert.Equal(t, images, Images(objects))
}

func TestTemplateFilename(t *testing.T) {
	objects, err := Parse(context.Background(), []byte(multiDocManifest))
	require.NoError(t, err)
	assert.Equal(t, "deployment-demo.yaml", TemplateFilename(objects[0]))
	assert.Equal(t, "configmap-demo-config.yaml", TemplateFilename(objects[1]))
}
