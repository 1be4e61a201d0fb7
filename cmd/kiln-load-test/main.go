package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	"sigs.k8s.io/controller-runtime/pkg/client"

	kilnv1alpha1 "github.com/bayleafwalker/kiln/api/v1alpha1"
	"github.com/bayleafwalker/kiln/internal/addons"
)

var (
	scheme = runtime.NewScheme()
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(kilnv1alpha1.AddToScheme(scheme))
}

type result struct {
	name    string
	latency time.Duration
	phase   string
}

func main() {
	var kubeconfig string
	if home := homedir.HomeDir(); home != "" {
		kubeconfig = filepath.Join(home, ".kube", "config")
	} else {
		kubeconfig = os.Getenv("KUBECONFIG")
	}
	flag.StringVar(&kubeconfig, "kubeconfig", kubeconfig, "absolute path to the kubeconfig file")

	var count int
	var namespace string
	var addon string
	var classifier string
	var timeout time.Duration
	var cleanup bool

	flag.IntVar(&count, "installations", 10, "Number of AddonInstallations to create")
	flag.StringVar(&namespace, "namespace", "default", "Namespace to create installations in")
	flag.StringVar(&addon, "addon", "", "Root addon coordinate (name:version)")
	flag.StringVar(&classifier, "classifier", "", "Classifier override for every installation")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for each installation to settle")
	flag.BoolVar(&cleanup, "cleanup", true, "Delete the installations when done")
	flag.Parse()

	if _, err := addons.ParseID(addon); err != nil {
		log.Fatalf("Invalid -addon: %v", err)
	}

	config, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		log.Fatalf("Error building kubeconfig: %v", err)
	}

	k8sClient, err := client.New(config, client.Options{Scheme: scheme})
	if err != nil {
		log.Fatalf("Error creating client: %v", err)
	}

	fmt.Printf("Starting load test: %d installations of %s in namespace %s\n", count, addon, namespace)

	var wg sync.WaitGroup
	start := time.Now()
	results := make(chan result, count)
	prefix := fmt.Sprintf("load-test-%d", time.Now().Unix())

	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			name := fmt.Sprintf("%s-%d", prefix, id)

			inst := &kilnv1alpha1.AddonInstallation{
				ObjectMeta: metav1.ObjectMeta{
					Name:      name,
					Namespace: namespace,
				},
				Spec: kilnv1alpha1.AddonInstallationSpec{
					Addon:      addon,
					Classifier: classifier,
				},
			}

			createStart := time.Now()
			if err := k8sClient.Create(context.Background(), inst); err != nil {
				fmt.Printf("Error creating installation %s: %v\n", name, err)
				return
			}
			if cleanup {
				defer func() {
					if err := k8sClient.Delete(context.Background(), inst); client.IgnoreNotFound(err) != nil {
						fmt.Printf("Error deleting installation %s: %v\n", name, err)
					}
				}()
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			for {
				select {
				case <-ctx.Done():
					fmt.Printf("Timeout waiting for installation %s\n", name)
					return
				case <-time.After(500 * time.Millisecond):
					var current kilnv1alpha1.AddonInstallation
					if err := k8sClient.Get(ctx, client.ObjectKey{Name: name, Namespace: namespace}, &current); err != nil {
						continue
					}
					switch current.Status.Phase {
					case kilnv1alpha1.AddonInstallationPhaseResolved, kilnv1alpha1.AddonInstallationPhaseFailed:
						results <- result{name: name, latency: time.Since(createStart), phase: string(current.Status.Phase)}
						return
					}
				}
			}
		}(i)
	}

	wg.Wait()
	close(results)
	totalDuration := time.Since(start)

	var latencies []time.Duration
	failed := 0
	for r := range results {
		if r.phase != string(kilnv1alpha1.AddonInstallationPhaseResolved) {
			failed++
			fmt.Printf("Installation %s ended %s\n", r.name, r.phase)
			continue
		}
		latencies = append(latencies, r.latency)
	}

	if len(latencies) == 0 {
		fmt.Printf("Load test completed in %v. No installations resolved (%d failed).\n", totalDuration, failed)
		os.Exit(1)
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	var total time.Duration
	for _, l := range latencies {
		total += l
	}
	p95 := latencies[(len(latencies)*95)/100]
	fmt.Printf("Load test completed in %v. Resolved %d, failed %d. Avg latency: %v, p95: %v\n",
		totalDuration, len(latencies), failed, total/time.Duration(len(latencies)), p95)
}
