// Package cluster provides read-only Kubernetes inspection capabilities,
// cluster_pods and cluster_namespaces, backed by a controller-runtime
// client.
package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"
	ctrlconfig "sigs.k8s.io/controller-runtime/pkg/client/config"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rhuss/funcall/pkg/debug"
	"github.com/rhuss/funcall/pkg/tools/registry"
)

var (
	podsParameters       = json.RawMessage(`{"type":"object","properties":{"namespace":{"type":"string","description":"Namespace to list (default: the configured namespace)"},"label_selector":{"type":"string","description":"Label selector, e.g. app=web,tier!=db"}},"required":[]}`)
	namespacesParameters = json.RawMessage(`{"type":"object","properties":{},"required":[]}`)
)

// NewScheme returns a runtime.Scheme with the core types registered.
func NewScheme() (*runtime.Scheme, error) {
	scheme := runtime.NewScheme()
	if err := corev1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("register core types: %w", err)
	}
	return scheme, nil
}

// NewClient builds a client from kubeconfig, or from the in-cluster / default
// loading rules when kubeconfig is empty.
func NewClient(kubeconfig string) (client.Client, error) {
	var (
		cfg *rest.Config
		err error
	)
	if kubeconfig != "" {
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	} else {
		cfg, err = ctrlconfig.GetConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("cluster: loading kubeconfig: %w", err)
	}

	scheme, err := NewScheme()
	if err != nil {
		return nil, err
	}
	return client.New(cfg, client.Options{Scheme: scheme})
}

// Provider serves the cluster capabilities.
type Provider struct {
	client    client.Reader
	namespace string
	lists     *prometheus.CounterVec
}

var _ registry.Provider = (*Provider)(nil)

// New creates a Provider reading through c. namespace is used when a call
// names none; empty means "default".
func New(c client.Reader, namespace string) *Provider {
	if namespace == "" {
		namespace = "default"
	}
	return &Provider{
		client:    c,
		namespace: namespace,
		lists: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "funcall_cluster_list_requests_total",
				Help: "Kubernetes list requests made by the cluster capabilities",
			},
			[]string{"resource", "status"},
		),
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "cluster" }

// Capabilities returns the cluster_pods and cluster_namespaces descriptors.
func (p *Provider) Capabilities() []registry.Descriptor {
	return []registry.Descriptor{
		{
			Name:        "cluster_pods",
			Description: "Lists pods in a Kubernetes namespace with their phase, readiness and restarts.",
			Parameters:  podsParameters,
			Handler:     registry.Typed(p.pods),
		},
		{
			Name:        "cluster_namespaces",
			Description: "Lists the namespaces of the Kubernetes cluster.",
			Parameters:  namespacesParameters,
			Handler:     p.namespaces,
		},
	}
}

// Collectors returns the list request counter.
func (p *Provider) Collectors() []prometheus.Collector {
	return []prometheus.Collector{p.lists}
}

// Close is a no-op.
func (p *Provider) Close() error { return nil }

type podsArgs struct {
	Namespace     string `json:"namespace"`
	LabelSelector string `json:"label_selector"`
}

// PodSummary is the per-pod result of cluster_pods.
type PodSummary struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Phase     string `json:"phase"`
	Ready     string `json:"ready"`
	Restarts  int32  `json:"restarts"`
	Node      string `json:"node,omitempty"`
	Created   string `json:"created,omitempty"`
}

func (p *Provider) pods(ctx context.Context, args podsArgs) (any, error) {
	ns := args.Namespace
	if ns == "" {
		ns = p.namespace
	}
	opts := []client.ListOption{client.InNamespace(ns)}
	if args.LabelSelector != "" {
		sel, err := labels.Parse(args.LabelSelector)
		if err != nil {
			return nil, &registry.ArgumentError{Field: "label_selector", Reason: err.Error()}
		}
		opts = append(opts, client.MatchingLabelsSelector{Selector: sel})
	}

	var list corev1.PodList
	if err := p.client.List(ctx, &list, opts...); err != nil {
		p.lists.WithLabelValues("pods", "error").Inc()
		return nil, fmt.Errorf("listing pods in %s: %w", ns, err)
	}
	p.lists.WithLabelValues("pods", "success").Inc()
	debug.Log("cluster", "listed pods", "namespace", ns, "count", len(list.Items))

	out := make([]PodSummary, 0, len(list.Items))
	for i := range list.Items {
		out = append(out, summarize(&list.Items[i]))
	}
	return out, nil
}

func summarize(pod *corev1.Pod) PodSummary {
	var ready int
	var restarts int32
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.Ready {
			ready++
		}
		restarts += cs.RestartCount
	}
	s := PodSummary{
		Name:      pod.Name,
		Namespace: pod.Namespace,
		Phase:     string(pod.Status.Phase),
		Ready:     fmt.Sprintf("%d/%d", ready, len(pod.Spec.Containers)),
		Restarts:  restarts,
		Node:      pod.Spec.NodeName,
	}
	if !pod.CreationTimestamp.IsZero() {
		s.Created = pod.CreationTimestamp.UTC().Format(time.RFC3339)
	}
	return s
}

// NamespaceSummary is the per-namespace result of cluster_namespaces.
type NamespaceSummary struct {
	Name  string `json:"name"`
	Phase string `json:"phase"`
}

func (p *Provider) namespaces(ctx context.Context, _ json.RawMessage) (any, error) {
	var list corev1.NamespaceList
	if err := p.client.List(ctx, &list); err != nil {
		p.lists.WithLabelValues("namespaces", "error").Inc()
		return nil, fmt.Errorf("listing namespaces: %w", err)
	}
	p.lists.WithLabelValues("namespaces", "success").Inc()

	out := make([]NamespaceSummary, 0, len(list.Items))
	for _, ns := range list.Items {
		out = append(out, NamespaceSummary{Name: ns.Name, Phase: string(ns.Status.Phase)})
	}
	return out, nil
}
