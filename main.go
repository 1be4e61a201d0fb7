package main

import (
	"flag"
	"os"

	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	kilnv1alpha1 "github.com/bayleafwalker/kiln/api/v1alpha1"
	"github.com/bayleafwalker/kiln/controllers"
	"github.com/bayleafwalker/kiln/internal/repository"
	"github.com/bayleafwalker/kiln/internal/resolver"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(kilnv1alpha1.AddToScheme(scheme))
}

func main() {
	var metricsAddr string
	var probeAddr string
	var enableLeaderElection bool
	var repositoryDir string
	var classifier string
	var resolveTimeout = resolver.DefaultTimeout

	flag.StringVar(&metricsAddr, "metrics-bind-address", ":8080", "The address the metric endpoint binds to.")
	flag.StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	flag.BoolVar(&enableLeaderElection, "leader-elect", false, "Enable leader election for controller manager.")
	flag.StringVar(&repositoryDir, "repository", "/var/lib/kiln/repository", "Directory of the local addon repository.")
	flag.StringVar(&classifier, "classifier", resolver.DefaultClassifier, "Classifier of addon artifacts.")
	flag.DurationVar(&resolveTimeout, "resolve-timeout", resolveTimeout, "Timeout of each repository call.")

	opts := zap.Options{Development: true}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	if st, err := os.Stat(repositoryDir); err != nil || !st.IsDir() {
		setupLog.Error(err, "addon repository is not a directory", "repository", repositoryDir)
		os.Exit(1)
	}
	repo := repository.NewLocal(repositoryDir)

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsserver.Options{BindAddress: metricsAddr},
		HealthProbeBindAddress: probeAddr,
		LeaderElection:         enableLeaderElection,
		LeaderElectionID:       "addoninstallation.kiln.dev",
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		os.Exit(1)
	}

	resolverOpts := resolver.Options{
		Repository: repo,
		Classifier: classifier,
		Timeout:    resolveTimeout,
		Logger:     ctrl.Log.WithName("resolver"),
	}
	if err := (&controllers.AddonInstallationReconciler{
		Client:          mgr.GetClient(),
		Scheme:          mgr.GetScheme(),
		Repository:      repo,
		Resolver:        resolver.NewDefault(resolverOpts),
		ResolverOptions: resolverOpts,
		Recorder:        mgr.GetEventRecorderFor("AddonInstallation"),
	}).SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "AddonInstallation")
		os.Exit(1)
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		os.Exit(1)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		os.Exit(1)
	}

	setupLog.Info("starting manager", "repository", repositoryDir, "classifier", classifier)
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		setupLog.Error(err, "problem running manager")
		os.Exit(1)
	}
}
